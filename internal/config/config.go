package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Project identifies the single logical project this installation captures for.
type Project struct {
	Name string `toml:"name"`
}

// Paths contains local directory configuration.
type Paths struct {
	StagingDir   string `toml:"staging_dir"`
	ThumbnailDir string `toml:"thumbnail_dir"`
	LogDir       string `toml:"log_dir"`
	CounterFile  string `toml:"counter_file"`
}

// Camera contains configuration for the capture binary.
type Camera struct {
	Binary         string   `toml:"binary"`
	Device         string   `toml:"device"`
	ExtraArgs      []string `toml:"extra_args"`
	CaptureTimeout int      `toml:"capture_timeout"`
	RetryBackoff   int      `toml:"retry_backoff"`
}

// Remote contains configuration for the rclone cloud remote.
type Remote struct {
	Name            string `toml:"name"`
	BaseDir         string `toml:"base_dir"`
	TransferRetries int    `toml:"transfer_retries"`
	TransferTimeout int    `toml:"transfer_timeout"`
}

// Volume contains configuration for the removable backup volume.
type Volume struct {
	Label         string `toml:"label"`
	MountPoint    string `toml:"mount_point"`
	BackupDir     string `toml:"backup_dir"`
	QuarantineDir string `toml:"quarantine_dir"`
	MountTimeout  int    `toml:"mount_timeout"`
}

// Schedule contains the capture window and the daily task times written into
// the scheduler file.
type Schedule struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	StartHour       int    `toml:"start_hour"`
	StopHour        int    `toml:"stop_hour"`
	SyncTime        string `toml:"sync_time"`
	MontageTime     string `toml:"montage_time"`
	CleanupTime     string `toml:"cleanup_time"`
	CrontabPath     string `toml:"crontab_path"`
	Executable      string `toml:"executable"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	Mention            string `toml:"mention"`
	RequestTimeout     int    `toml:"request_timeout"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Mail contains configuration for the outbound mail collaborator.
type Mail struct {
	Binary     string   `toml:"binary"`
	Recipients []string `toml:"recipients"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for lapse.
//
// Configuration sections by subsystem:
//   - Project: project name used in remote paths and notifications
//   - Paths: local staging, thumbnail, log, and counter locations
//   - Camera: capture binary, timeout, and retry backoff
//   - Remote: rclone remote name and transfer settings
//   - Volume: removable backup volume label, mount point, and layout
//   - Schedule: capture window and daily task times
//   - Notifications: ntfy push notification settings
//   - Mail: outbound mail delivery for daily montages
//   - Logging: log format, level, and retention
type Config struct {
	Project       Project       `toml:"project"`
	Paths         Paths         `toml:"paths"`
	Camera        Camera        `toml:"camera"`
	Remote        Remote        `toml:"remote"`
	Volume        Volume        `toml:"volume"`
	Schedule      Schedule      `toml:"schedule"`
	Notifications Notifications `toml:"notifications"`
	Mail          Mail          `toml:"mail"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lapse/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lapse.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories lapse needs. The volume
// mount point is not created here; the volume manager owns it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.ThumbnailDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if counterDir := filepath.Dir(c.Paths.CounterFile); counterDir != "" {
		if err := os.MkdirAll(counterDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", counterDir, err)
		}
	}
	return nil
}

// LogFile returns the active log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.Paths.LogDir, "lapse.log")
}

// RcloneBinary returns the rclone executable name.
func (c *Config) RcloneBinary() string {
	return "rclone"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// The file is written with restrictive permissions because it can hold the
// ntfy topic and mail recipients.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
