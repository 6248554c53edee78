package testsupport

import (
	"path/filepath"
	"testing"

	"lapse/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Project.Name = "Test Project"
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.ThumbnailDir = filepath.Join(base, "thumbnails")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CounterFile = filepath.Join(base, "sequence.txt")
	cfgVal.Volume.MountPoint = filepath.Join(base, "volume")
	cfgVal.Remote.Name = "testremote"
	cfgVal.Remote.BaseDir = "lapse"
	cfgVal.Schedule.CrontabPath = filepath.Join(base, "crontab")
	cfgVal.Schedule.Executable = "/usr/local/bin/lapse"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProjectName overrides the project name on the test config.
func WithProjectName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Project.Name = name
	}
}

// WithNtfyTopic sets the ntfy topic on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithVolumeLabel overrides the removable volume label on the test config.
func WithVolumeLabel(label string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Volume.Label = label
	}
}
