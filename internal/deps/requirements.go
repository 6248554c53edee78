package deps

import "lapse/internal/config"

// Requirements lists the external binaries the pipeline depends on, derived
// from the active configuration.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "Camera", Command: cfg.Camera.Binary, Description: "Captures photos"},
		{Name: "rclone", Command: cfg.RcloneBinary(), Description: "Cloud transfers and listings"},
		{Name: "ImageMagick", Command: "magick", Description: "Thumbnails and daily montage"},
		{Name: "mail", Command: cfg.Mail.Binary, Description: "Daily montage delivery", Optional: true},
		{Name: "crontab", Command: "crontab", Description: "Schedule installation", Optional: true},
		{Name: "lsblk", Command: "lsblk", Description: "Backup volume discovery"},
		{Name: "mount", Command: "mount", Description: "Backup volume mounting"},
		{Name: "umount", Command: "umount", Description: "Backup volume unmounting"},
	}
}
