package config

import "strings"

// normalize expands and cleans path-valued fields and trims free-form
// strings. It runs after decoding and before validation.
func (c *Config) normalize() error {
	c.Project.Name = strings.TrimSpace(c.Project.Name)
	c.Remote.Name = strings.TrimSpace(c.Remote.Name)
	c.Remote.BaseDir = strings.Trim(strings.TrimSpace(c.Remote.BaseDir), "/")
	c.Volume.Label = strings.TrimSpace(c.Volume.Label)
	c.Volume.BackupDir = strings.Trim(strings.TrimSpace(c.Volume.BackupDir), "/")
	c.Volume.QuarantineDir = strings.Trim(strings.TrimSpace(c.Volume.QuarantineDir), "/")
	c.Camera.Binary = strings.TrimSpace(c.Camera.Binary)
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	c.Mail.Binary = strings.TrimSpace(c.Mail.Binary)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.Mention = strings.TrimSpace(c.Notifications.Mention)
	c.Schedule.SyncTime = strings.TrimSpace(c.Schedule.SyncTime)
	c.Schedule.MontageTime = strings.TrimSpace(c.Schedule.MontageTime)
	c.Schedule.CleanupTime = strings.TrimSpace(c.Schedule.CleanupTime)

	recipients := make([]string, 0, len(c.Mail.Recipients))
	for _, r := range c.Mail.Recipients {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	c.Mail.Recipients = recipients

	for _, field := range []*string{
		&c.Paths.StagingDir,
		&c.Paths.ThumbnailDir,
		&c.Paths.LogDir,
		&c.Paths.CounterFile,
		&c.Volume.MountPoint,
		&c.Schedule.CrontabPath,
	} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}
