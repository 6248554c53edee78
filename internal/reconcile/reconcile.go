// Package reconcile closes each day: it re-lists the cloud store against the
// local backup partition, repairs what the day's pipeline failed to upload,
// archives the day's log, and cleans verified local copies. Every decision
// comes from fresh store listings; no cached state is trusted.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lapse/internal/backup"
	"lapse/internal/config"
	"lapse/internal/ledger"
	"lapse/internal/logging"
	"lapse/internal/notifications"
	"lapse/internal/photo"
	"lapse/internal/remotepath"
	"lapse/internal/services/rclone"
	"lapse/internal/upload"
	"lapse/internal/volume"
)

// SyncReport summarizes one end-of-day reconciliation.
type SyncReport struct {
	Date     string
	Local    int
	Remote   int
	Already  int
	Uploaded int
	Failed   int
}

// Reconciler repairs the cloud store from the local backup partition.
type Reconciler struct {
	cfg      *config.Config
	remote   rclone.Client
	uploads  *upload.Manager
	backups  *backup.Manager
	volume   volume.Mounter
	notifier notifications.Service
	store    *ledger.Store
	logger   *slog.Logger
}

// NewReconciler constructs a reconciler. The ledger store may be nil.
func NewReconciler(
	cfg *config.Config,
	remote rclone.Client,
	uploads *upload.Manager,
	backups *backup.Manager,
	vol volume.Mounter,
	notifier notifications.Service,
	store *ledger.Store,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		cfg:      cfg,
		remote:   remote,
		uploads:  uploads,
		backups:  backups,
		volume:   vol,
		notifier: notifier,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Reconcile lists the remote once for the date, re-uploads every local
// backup file the listing misses, and quarantines files the cloud keeps
// rejecting. The report's Remote count comes from a second listing taken
// after the repairs, so it reflects what is actually there. Safe to re-run.
func (r *Reconciler) Reconcile(ctx context.Context, date string) (SyncReport, error) {
	report := SyncReport{Date: date}

	handle, err := r.volume.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire volume: %w", err)
	}
	defer handle.Release()

	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return report, fmt.Errorf("parse date %q: %w", date, err)
	}
	month := photo.MonthPart(day)

	locals, err := listPhotos(handle.BackupDir(date))
	if err != nil {
		return report, fmt.Errorf("list local backups: %w", err)
	}
	report.Local = len(locals)

	remoteNames, err := r.remote.List(ctx, remotepath.PhotoDir(r.cfg, month, date))
	if err != nil {
		return report, fmt.Errorf("list remote: %w", err)
	}
	remoteSet := make(map[string]struct{}, len(remoteNames))
	for _, name := range remoteNames {
		remoteSet[name] = struct{}{}
	}

	for _, local := range locals {
		name := filepath.Base(local)
		p, ok := photoFromFile(local)
		if !ok {
			r.logger.Warn("skipping unparseable backup file", logging.String(logging.FieldPhoto, name))
			continue
		}

		if _, present := remoteSet[name]; present {
			report.Already++
			r.record(ctx, p, ledger.StateAlreadyRemote, "")
			continue
		}

		if err := r.uploads.Upload(ctx, p); err != nil {
			report.Failed++
			r.logger.Warn("repair upload failed",
				logging.String(logging.FieldPhoto, name),
				logging.Error(err),
			)
			if qErr := r.backups.Quarantine(ctx, p); qErr != nil {
				r.logger.Error("quarantine failed", logging.Error(qErr))
			} else {
				r.record(ctx, p, ledger.StateQuarantined, err.Error())
			}
			continue
		}
		report.Uploaded++
		r.record(ctx, p, ledger.StateReconciled, "")
	}

	r.archiveLog(ctx, date)

	finalNames, err := r.remote.List(ctx, remotepath.PhotoDir(r.cfg, month, date))
	if err != nil {
		r.logger.Warn("final remote listing failed", logging.Error(err))
	} else {
		report.Remote = len(finalNames)
	}

	if err := r.notifier.NotifySyncReport(ctx, date, report.Local, report.Already, report.Uploaded, report.Failed); err != nil {
		r.logger.Warn("sync report notification failed", logging.Error(err))
	}

	r.logger.Info("reconciliation complete",
		logging.String(logging.FieldDate, date),
		logging.Int("local", report.Local),
		logging.Int("remote", report.Remote),
		logging.Int("already", report.Already),
		logging.Int("uploaded", report.Uploaded),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}

// CleanupVerified deletes local backup files for the date whose remote
// copies verify as present with a matching digest. Anything the remote
// cannot vouch for stays put.
func (r *Reconciler) CleanupVerified(ctx context.Context, date string) (int, error) {
	handle, err := r.volume.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire volume: %w", err)
	}
	defer handle.Release()

	if _, err := time.ParseInLocation("2006-01-02", date, time.Local); err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}

	locals, err := listPhotos(handle.BackupDir(date))
	if err != nil {
		return 0, fmt.Errorf("list local backups: %w", err)
	}

	deleted := 0
	for _, local := range locals {
		p, ok := photoFromFile(local)
		if !ok {
			continue
		}
		intact, err := r.uploads.Verify(ctx, p)
		if err != nil {
			r.logger.Warn("remote verification failed",
				logging.String(logging.FieldPhoto, p.Name()),
				logging.Error(err),
			)
			continue
		}
		if !intact {
			continue
		}
		if err := os.Remove(local); err != nil {
			r.logger.Warn("failed to delete verified backup", logging.Error(err))
			continue
		}
		deleted++
		r.record(ctx, p, ledger.StateDeletedLocally, "")
	}

	r.logger.Info("verified cleanup complete",
		logging.String(logging.FieldDate, date),
		logging.Int("deleted", deleted),
	)
	return deleted, nil
}

// archiveLog pushes the day's log to the remote and rotates it locally. Both
// steps are best-effort; a day without a log is normal.
func (r *Reconciler) archiveLog(ctx context.Context, date string) {
	logPath := r.cfg.LogFile()
	if info, err := os.Stat(logPath); err != nil || info.Size() == 0 {
		return
	}
	if err := r.remote.CopyTo(ctx, logPath, remotepath.Log(r.cfg, date)); err != nil {
		r.logger.Warn("log archive upload failed", logging.Error(err))
		return
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return
	}
	if _, err := logging.Rotate(logPath, day); err != nil {
		r.logger.Warn("log rotation failed", logging.Error(err))
	}
}

func (r *Reconciler) record(ctx context.Context, p photo.Photo, state ledger.State, detail string) {
	if r.store == nil {
		return
	}
	if err := r.store.Record(ctx, p, state, detail); err != nil {
		r.logger.Warn("ledger write failed", logging.Error(err))
	}
}

func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !photo.IsPhotoName(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

func photoFromFile(path string) (photo.Photo, bool) {
	name := filepath.Base(path)
	seq, ok := photo.ParseSequence(name)
	if !ok {
		return photo.Photo{}, false
	}
	capturedAt, ok := photo.ParseCaptureTime(name)
	if !ok {
		return photo.Photo{}, false
	}
	return photo.Photo{Sequence: seq, CapturedAt: capturedAt, Path: path}, true
}
