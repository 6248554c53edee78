// Package remotepath centralizes the cloud remote's directory layout so the
// upload, sequence, montage, and reconciliation components always agree on
// where things live.
package remotepath

import (
	"lapse/internal/config"
	"lapse/internal/photo"
	"lapse/internal/services/rclone"
)

// PhotoDir returns the remote folder for one capture date.
func PhotoDir(cfg *config.Config, month, date string) string {
	return rclone.Join(cfg.Remote.Name, cfg.Remote.BaseDir, cfg.Project.Name, photo.DailyPhotosDir, month, date)
}

// Photo returns the exact remote path for a photo.
func Photo(cfg *config.Config, p photo.Photo) string {
	return rclone.Join(cfg.Remote.Name, cfg.Remote.BaseDir, cfg.Project.Name, photo.DailyPhotosDir, p.Month(), p.Date(), p.Name())
}

// ReviewDir returns the remote folder daily montages are uploaded to.
func ReviewDir(cfg *config.Config) string {
	return rclone.Join(cfg.Remote.Name, cfg.Remote.BaseDir, cfg.Project.Name, photo.DailyReviewsDir)
}

// Review returns the exact remote path for a named montage.
func Review(cfg *config.Config, name string) string {
	return rclone.Join(cfg.Remote.Name, cfg.Remote.BaseDir, cfg.Project.Name, photo.DailyReviewsDir, name)
}

// Marker returns the remote sequence marker object path.
func Marker(cfg *config.Config) string {
	return rclone.Join(cfg.Remote.Name, cfg.Remote.BaseDir, cfg.Project.Name, "sequence.txt")
}

// Log returns the remote path for an archived daily log.
func Log(cfg *config.Config, date string) string {
	return rclone.Join(cfg.Remote.Name, cfg.Remote.BaseDir, cfg.Project.Name, "logs", date+".log")
}
