// Package sequence issues globally consistent photo sequence numbers by
// reconciling counters held in up to four places: the local counter file,
// the removable-volume mirror, the cloud marker object, and a filename scan
// floor. Stored counters hold the next number to assign, not the last one
// assigned.
package sequence

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lapse/internal/config"
	"lapse/internal/logging"
	"lapse/internal/photo"
	"lapse/internal/remotepath"
	"lapse/internal/services/rclone"
	"lapse/internal/volume"
)

// Authority owns write access to every counter mirror.
type Authority struct {
	cfg    *config.Config
	remote rclone.Client
	volume volume.Mounter
	logger *slog.Logger
}

// NewAuthority constructs a sequence authority.
func NewAuthority(cfg *config.Config, remote rclone.Client, vol volume.Mounter, logger *slog.Logger) *Authority {
	return &Authority{
		cfg:    cfg,
		remote: remote,
		volume: vol,
		logger: logging.NewComponentLogger(logger, "sequence"),
	}
}

// Next returns the next sequence number and persists its successor to every
// reachable mirror. The call never fails: unreachable sources degrade to the
// remaining ones, and when every source is empty numbering starts at 1.
func (a *Authority) Next(ctx context.Context) int {
	current := ReadCounterFile(a.cfg.Paths.CounterFile)

	var handle volume.Handle
	if h, err := a.volume.Acquire(ctx); err == nil {
		handle = h
		defer handle.Release()
		if v := ReadCounterFile(handle.CounterFile()); v > current {
			current = v
		}
	} else {
		a.logger.Warn("volume counter mirror unreachable", logging.Error(err))
	}

	if raw, err := a.remote.Cat(ctx, remotepath.Marker(a.cfg)); err == nil {
		if v := parseCounter(string(raw)); v > current {
			current = v
		}
	} else {
		a.logger.Warn("cloud sequence marker unreachable", logging.Error(err))
	}

	// Last resort: the highest number already embedded in filenames is a
	// floor even when every counter was lost.
	if current == 0 {
		dirs := []string{a.cfg.Paths.StagingDir}
		if handle != nil {
			dirs = append(dirs, handle.BackupRoot())
		}
		if used := photo.MaxSequenceInDirs(dirs...); used > 0 {
			current = used + 1
			a.logger.Info("recovered sequence floor from filenames",
				logging.Int("highest_used", used),
			)
		}
	}
	if current == 0 {
		current = 1
	}

	next := current + 1
	if err := WriteCounterFile(a.cfg.Paths.CounterFile, next); err != nil {
		a.logger.Error("failed to persist local counter", logging.Error(err))
	}
	if handle != nil {
		if err := WriteCounterFile(handle.CounterFile(), next); err != nil {
			a.logger.Warn("failed to persist volume counter mirror", logging.Error(err))
		}
	}
	if err := a.writeMarker(ctx, next); err != nil {
		a.logger.Warn("failed to persist cloud sequence marker", logging.Error(err))
	}

	a.logger.Debug("issued sequence number",
		logging.Int(logging.FieldSequence, current),
		logging.Int("persisted_next", next),
	)
	return current
}

// AdvanceMarker raises the cloud marker to at least next. Used by the upload
// path so a verified upload self-heals a stale marker.
func (a *Authority) AdvanceMarker(ctx context.Context, next int) error {
	if raw, err := a.remote.Cat(ctx, remotepath.Marker(a.cfg)); err == nil {
		if parseCounter(string(raw)) >= next {
			return nil
		}
	}
	return a.writeMarker(ctx, next)
}

func (a *Authority) writeMarker(ctx context.Context, value int) error {
	tmp, err := os.CreateTemp("", "lapse-marker-*")
	if err != nil {
		return fmt.Errorf("create marker temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "%05d\n", value); err != nil {
		tmp.Close()
		return fmt.Errorf("write marker temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return a.remote.CopyTo(ctx, tmp.Name(), remotepath.Marker(a.cfg))
}

// ReadCounterFile reads a counter file, returning 0 for a missing, empty, or
// malformed file.
func ReadCounterFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return parseCounter(string(data))
}

// WriteCounterFile persists a counter as a single 5-digit zero-padded line.
func WriteCounterFile(path string, value int) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create counter directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%05d\n", value)), 0o644)
}

func parseCounter(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
