package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProject(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateVolume(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProject() error {
	if c.Project.Name == "" {
		return errors.New("project.name must be set")
	}
	if strings.ContainsAny(c.Project.Name, "/\\") {
		return errors.New("project.name must not contain path separators")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.Binary == "" {
		return errors.New("camera.binary must be set")
	}
	if c.Camera.CaptureTimeout <= 0 {
		return errors.New("camera.capture_timeout must be positive")
	}
	if c.Camera.RetryBackoff < 0 {
		return errors.New("camera.retry_backoff must not be negative")
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.Name == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lapse/config.toml"
		}
		return fmt.Errorf("remote.name is required (an rclone remote); edit %s (create with 'lapse setup')", defaultPath)
	}
	if strings.Contains(c.Remote.Name, ":") {
		return errors.New("remote.name must be a bare rclone remote name without ':'")
	}
	if c.Remote.TransferRetries < 1 {
		return errors.New("remote.transfer_retries must be at least 1")
	}
	return nil
}

func (c *Config) validateVolume() error {
	if c.Volume.Label == "" {
		return errors.New("volume.label must be set")
	}
	if c.Volume.MountPoint == "" {
		return errors.New("volume.mount_point must be set")
	}
	if c.Volume.BackupDir == "" {
		return errors.New("volume.backup_dir must be set")
	}
	if c.Volume.QuarantineDir == "" {
		return errors.New("volume.quarantine_dir must be set")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.IntervalMinutes < 1 || c.Schedule.IntervalMinutes > 59 {
		return errors.New("schedule.interval_minutes must be between 1 and 59")
	}
	if c.Schedule.StartHour < 0 || c.Schedule.StartHour > 23 {
		return errors.New("schedule.start_hour must be between 0 and 23")
	}
	if c.Schedule.StopHour < 0 || c.Schedule.StopHour > 23 {
		return errors.New("schedule.stop_hour must be between 0 and 23")
	}
	if c.Schedule.StopHour <= c.Schedule.StartHour {
		return errors.New("schedule.stop_hour must be after schedule.start_hour")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"schedule.sync_time", c.Schedule.SyncTime},
		{"schedule.montage_time", c.Schedule.MontageTime},
		{"schedule.cleanup_time", c.Schedule.CleanupTime},
	} {
		if err := validateClock(field.name, field.value); err != nil {
			return err
		}
	}
	return nil
}

func validateClock(name, value string) error {
	var hh, mm int
	if _, err := fmt.Sscanf(value, "%d:%d", &hh, &mm); err != nil {
		return fmt.Errorf("%s must be HH:MM, got %q", name, value)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return fmt.Errorf("%s out of range: %q", name, value)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must not be negative")
	}
	return nil
}
