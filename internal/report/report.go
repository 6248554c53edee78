// Package report gathers per-store photo counts and overall health for the
// count and status commands. Counts come from live store listings; the
// ledger only contributes lifecycle statistics.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lapse/internal/config"
	"lapse/internal/deps"
	"lapse/internal/ledger"
	"lapse/internal/logging"
	"lapse/internal/photo"
	"lapse/internal/remotepath"
	"lapse/internal/sequence"
	"lapse/internal/services/rclone"
	"lapse/internal/volume"
)

// StoreCounts holds per-store photo counts for one capture date.
type StoreCounts struct {
	Date    string
	Staging int
	Backup  int
	Remote  int
}

// Health is the full status command payload.
type Health struct {
	ConfigPath   string
	NextSequence int
	Counts       StoreCounts
	States       map[ledger.State]int
	Dependencies []deps.Status
}

// Reporter assembles counts and health summaries.
type Reporter struct {
	cfg    *config.Config
	remote rclone.Client
	volume volume.Mounter
	store  *ledger.Store
	logger *slog.Logger
}

// NewReporter constructs a reporter. The ledger store may be nil.
func NewReporter(cfg *config.Config, remote rclone.Client, vol volume.Mounter, store *ledger.Store, logger *slog.Logger) *Reporter {
	return &Reporter{
		cfg:    cfg,
		remote: remote,
		volume: vol,
		store:  store,
		logger: logging.NewComponentLogger(logger, "report"),
	}
}

// Counts returns the per-store photo counts for the date. The backup count
// needs the volume mounted; an unreachable volume fails the call so a count
// of zero is never mistaken for an empty store.
func (r *Reporter) Counts(ctx context.Context, date string) (StoreCounts, error) {
	counts := StoreCounts{Date: date}

	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return counts, fmt.Errorf("parse date %q: %w", date, err)
	}

	counts.Staging = countPhotos(r.cfg.Paths.StagingDir)

	handle, err := r.volume.Acquire(ctx)
	if err != nil {
		return counts, fmt.Errorf("acquire volume: %w", err)
	}
	counts.Backup = countPhotos(handle.BackupDir(date))
	handle.Release()

	names, err := r.remote.List(ctx, remotepath.PhotoDir(r.cfg, photo.MonthPart(day), date))
	if err != nil {
		return counts, fmt.Errorf("list remote: %w", err)
	}
	for _, name := range names {
		if photo.IsPhotoName(name) {
			counts.Remote++
		}
	}
	return counts, nil
}

// Status assembles the health summary for today. Store listing failures
// degrade to partial output instead of failing the whole report.
func (r *Reporter) Status(ctx context.Context, configPath string) Health {
	date := photo.DatePart(time.Now())
	health := Health{
		ConfigPath:   configPath,
		NextSequence: sequence.ReadCounterFile(r.cfg.Paths.CounterFile),
		Dependencies: deps.CheckBinaries(deps.Requirements(r.cfg)),
	}

	counts, err := r.Counts(ctx, date)
	if err != nil {
		r.logger.Warn("store counts unavailable", logging.Error(err))
		counts.Date = date
	}
	health.Counts = counts

	if r.store != nil {
		states, err := r.store.CountByState(ctx, date)
		if err != nil {
			r.logger.Warn("ledger stats unavailable", logging.Error(err))
		} else {
			health.States = states
		}
	}
	return health
}

func countPhotos(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && photo.IsPhotoName(entry.Name()) {
			count++
		}
	}
	return count
}
