// Package pipeline orchestrates one capture invocation end to end: sweep
// stranded photos, issue a sequence number, expose, derive the thumbnail,
// upload, and back up. Store failures after a successful exposure never lose
// the photo; it stays in staging for the next invocation's sweep.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lapse/internal/backup"
	"lapse/internal/capture"
	"lapse/internal/config"
	"lapse/internal/ledger"
	"lapse/internal/logging"
	"lapse/internal/montage"
	"lapse/internal/notifications"
	"lapse/internal/photo"
	"lapse/internal/sequence"
	"lapse/internal/upload"
)

// Runner drives the capture pipeline.
type Runner struct {
	cfg       *config.Config
	sequences *sequence.Authority
	capture   *capture.Controller
	uploads   *upload.Manager
	backups   *backup.Manager
	montage   *montage.Builder
	notifier  notifications.Service
	store     *ledger.Store
	logger    *slog.Logger
}

// NewRunner constructs a pipeline runner. The ledger store may be nil.
func NewRunner(
	cfg *config.Config,
	sequences *sequence.Authority,
	ctrl *capture.Controller,
	uploads *upload.Manager,
	backups *backup.Manager,
	builder *montage.Builder,
	notifier notifications.Service,
	store *ledger.Store,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		sequences: sequences,
		capture:   ctrl,
		uploads:   uploads,
		backups:   backups,
		montage:   builder,
		notifier:  notifier,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run performs one capture invocation. Overlapping invocations are guarded
// by a file lock; the loser exits cleanly without capturing, since the next
// scheduled run will cover it.
func (r *Runner) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.cfg.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("ensure log directory: %w", err)
	}
	lock := flock.New(filepath.Join(r.cfg.Paths.LogDir, "capture.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire capture lock: %w", err)
	}
	if !locked {
		r.logger.Info("capture already running, skipping invocation")
		return nil
	}
	defer func() { _ = lock.Unlock() }()

	logger := r.logger.With(logging.String(logging.FieldCorrelationID, uuid.NewString()))

	r.sweepStranded(ctx, logger)

	seq := r.sequences.Next(ctx)
	p, err := r.capture.Capture(ctx, seq)
	if err != nil {
		if nErr := r.notifier.NotifyCaptureFailed(ctx, err); nErr != nil {
			logger.Warn("capture failure notification failed", logging.Error(nErr))
		}
		return err
	}
	r.record(ctx, p, ledger.StateCaptured, "")

	if err := r.montage.Thumbnail(ctx, p); err != nil {
		logger.Warn("thumbnail derivation failed",
			logging.String(logging.FieldPhoto, p.Name()),
			logging.Error(err),
		)
	}

	r.storePhoto(ctx, logger, p)
	return nil
}

// storePhoto pushes one staged photo through upload and backup. Neither
// failure is fatal; the photo stays in staging until both succeed.
func (r *Runner) storePhoto(ctx context.Context, logger *slog.Logger, p photo.Photo) {
	uploaded := false
	if err := r.uploads.Upload(ctx, p); err != nil {
		r.record(ctx, p, ledger.StateUploadFailed, err.Error())
		logger.Warn("upload failed", logging.String(logging.FieldPhoto, p.Name()), logging.Error(err))
		if nErr := r.notifier.NotifyUploadFailed(ctx, p.Name(), err); nErr != nil {
			logger.Warn("upload failure notification failed", logging.Error(nErr))
		}
	} else {
		uploaded = true
		r.record(ctx, p, ledger.StateUploadOK, "")
	}

	if err := r.backups.Backup(ctx, p); err != nil {
		logger.Warn("backup failed", logging.String(logging.FieldPhoto, p.Name()), logging.Error(err))
		if nErr := r.notifier.NotifyBackupFailed(ctx, p.Name(), err); nErr != nil {
			logger.Warn("backup failure notification failed", logging.Error(nErr))
		}
		return
	}
	r.record(ctx, p, ledger.StateBackedUp, "")

	if uploaded {
		if err := r.notifier.NotifyPhotoStored(ctx, p.Name()); err != nil {
			logger.Warn("stored notification failed", logging.Error(err))
		}
	}
}

// sweepStranded retries photos left in staging by earlier invocations whose
// stores were unreachable, and adopts foreign JPEGs dropped there by hand.
func (r *Runner) sweepStranded(ctx context.Context, logger *slog.Logger) {
	entries, err := os.ReadDir(r.cfg.Paths.StagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("staging sweep failed", logging.Error(err))
		}
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !photo.IsPhotoName(entry.Name()) {
			r.adoptForeign(ctx, logger, entry.Name())
			continue
		}
		seq, _ := photo.ParseSequence(entry.Name())
		capturedAt, ok := photo.ParseCaptureTime(entry.Name())
		if !ok {
			continue
		}
		p := photo.Photo{
			Sequence:   seq,
			CapturedAt: capturedAt,
			Path:       filepath.Join(r.cfg.Paths.StagingDir, entry.Name()),
			Project:    r.cfg.Project.Name,
		}
		logger.Info("retrying stranded photo", logging.String(logging.FieldPhoto, p.Name()))
		r.storePhoto(ctx, logger, p)
	}
}

// adoptForeign brings a JPEG that did not come from the capture controller
// under the canonical naming scheme and stores it like any other photo. The
// capture timestamp comes from the file's EXIF block, falling back to the
// file's modification time.
func (r *Runner) adoptForeign(ctx context.Context, logger *slog.Logger, name string) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".jpg" && ext != ".jpeg" {
		return
	}
	src := filepath.Join(r.cfg.Paths.StagingDir, name)
	capturedAt, ok := photo.ExifCaptureTime(src)
	if !ok {
		info, err := os.Stat(src)
		if err != nil {
			return
		}
		capturedAt = info.ModTime()
	}

	p := photo.Photo{
		Sequence:   r.sequences.Next(ctx),
		CapturedAt: capturedAt,
		Project:    r.cfg.Project.Name,
	}
	p.Path = filepath.Join(r.cfg.Paths.StagingDir, p.Name())
	if err := os.Rename(src, p.Path); err != nil {
		logger.Warn("failed to adopt foreign photo",
			logging.String("source", name),
			logging.Error(err),
		)
		return
	}

	logger.Info("adopted foreign photo",
		logging.String("source", name),
		logging.String(logging.FieldPhoto, p.Name()),
	)
	r.record(ctx, p, ledger.StateCaptured, "adopted from "+name)
	r.storePhoto(ctx, logger, p)
}

func (r *Runner) record(ctx context.Context, p photo.Photo, state ledger.State, detail string) {
	if r.store == nil {
		return
	}
	if err := r.store.Record(ctx, p, state, detail); err != nil {
		r.logger.Warn("ledger write failed", logging.Error(err))
	}
}
