// Package schedule renders the crontab that drives lapse: a capture line
// every N minutes inside the day's shooting window, plus the three daily
// maintenance jobs. The file is regenerated wholesale so config is the only
// source of truth.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"lapse/internal/config"
	"lapse/internal/logging"
	"lapse/internal/services"
)

var commandContext = exec.CommandContext

// Scheduler writes and installs the crontab file.
type Scheduler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewScheduler constructs a scheduler.
func NewScheduler(cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "schedule"),
	}
}

// Render produces the crontab content from the current config.
func (s *Scheduler) Render() (string, error) {
	sched := s.cfg.Schedule
	exe := sched.Executable
	if exe == "" {
		resolved, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable: %w", err)
		}
		exe = resolved
	}

	var b strings.Builder
	b.WriteString("# Generated by lapse; edits here are overwritten by setup and change-interval.\n")
	fmt.Fprintf(&b, "*/%d %d-%d * * * %s capture\n",
		sched.IntervalMinutes, sched.StartHour, sched.StopHour, exe)

	daily := []struct {
		clock   string
		command string
	}{
		{sched.SyncTime, "end_of_day_sync"},
		{sched.MontageTime, "create_daily_montage"},
		{sched.CleanupTime, "cleanup_directories"},
	}
	for _, job := range daily {
		hour, minute, err := parseClock(job.clock)
		if err != nil {
			return "", fmt.Errorf("%s time: %w", job.command, err)
		}
		fmt.Fprintf(&b, "%d %d * * * %s %s\n", minute, hour, exe, job.command)
	}
	return b.String(), nil
}

// Write renders the crontab and saves it to the configured path.
func (s *Scheduler) Write() (string, error) {
	content, err := s.Render()
	if err != nil {
		return "", err
	}
	path := s.cfg.Schedule.CrontabPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create crontab directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write crontab: %w", err)
	}
	s.logger.Info("crontab written", logging.String("path", path))
	return path, nil
}

// Install writes the crontab file and loads it with the crontab tool.
func (s *Scheduler) Install(ctx context.Context) error {
	path, err := s.Write()
	if err != nil {
		return err
	}
	cmd := commandContext(ctx, "crontab", path)
	if output, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "schedule", "install crontab",
			strings.TrimSpace(string(output)), err)
	}
	s.logger.Info("crontab installed")
	return nil
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed clock %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed clock %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed clock %q", value)
	}
	return hour, minute, nil
}
