// Package montage derives clock-labelled thumbnails from captured photos and
// assembles them into the daily review sheet.
package montage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lapse/internal/config"
	"lapse/internal/fileutil"
	"lapse/internal/logging"
	"lapse/internal/notifications"
	"lapse/internal/photo"
	"lapse/internal/remotepath"
	"lapse/internal/services/imaging"
	"lapse/internal/services/mailer"
	"lapse/internal/services/rclone"
	"lapse/internal/volume"
)

// tileWidth is how many thumbnails sit on one montage row.
const tileWidth = 6

// Builder derives thumbnails and assembles the daily montage.
type Builder struct {
	cfg      *config.Config
	imaging  imaging.Client
	remote   rclone.Client
	mail     mailer.Client
	volume   volume.Mounter
	notifier notifications.Service
	logger   *slog.Logger
}

// NewBuilder constructs a montage builder.
func NewBuilder(
	cfg *config.Config,
	img imaging.Client,
	remote rclone.Client,
	mail mailer.Client,
	vol volume.Mounter,
	notifier notifications.Service,
	logger *slog.Logger,
) *Builder {
	return &Builder{
		cfg:      cfg,
		imaging:  img,
		remote:   remote,
		mail:     mail,
		volume:   vol,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "montage"),
	}
}

// Thumbnail derives the fixed-size review thumbnail for one photo, annotated
// with the capture clock from the filename token.
func (b *Builder) Thumbnail(ctx context.Context, p photo.Photo) error {
	label, ok := photo.ClockLabel(p.Name())
	if !ok {
		label = p.CapturedAt.Format("15:04")
	}

	dir := filepath.Join(b.cfg.Paths.ThumbnailDir, p.Date())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create thumbnail directory: %w", err)
	}
	dst := filepath.Join(dir, p.Name())
	if err := b.imaging.Thumbnail(ctx, p.Path, dst, label); err != nil {
		return err
	}

	b.logger.Debug("thumbnail derived", logging.String(logging.FieldPhoto, p.Name()))
	return nil
}

// BuildDaily assembles the day's thumbnails into one montage and delivers
// it. A day with zero thumbnails is not an error: one notification goes out
// and the call succeeds. The thumbnail directory is removed once the montage
// reached at least one destination.
func (b *Builder) BuildDaily(ctx context.Context, date string) error {
	thumbDir := filepath.Join(b.cfg.Paths.ThumbnailDir, date)
	inputs, err := thumbnailsByAge(thumbDir)
	if err != nil {
		return fmt.Errorf("list thumbnails: %w", err)
	}
	if len(inputs) == 0 {
		b.logger.Info("no thumbnails for montage", logging.String(logging.FieldDate, date))
		return b.notifier.NotifyNoThumbnails(ctx, date)
	}

	name := fmt.Sprintf("%s_daily_review.jpg", date)
	dst := filepath.Join(b.cfg.Paths.ThumbnailDir, name)
	if err := b.imaging.Montage(ctx, inputs, dst, b.heading(date), tileWidth); err != nil {
		return err
	}
	defer os.Remove(dst)

	delivered := b.deliver(ctx, date, name, dst)
	if !delivered {
		return fmt.Errorf("montage for %s reached no destination", date)
	}

	if err := os.RemoveAll(thumbDir); err != nil {
		b.logger.Warn("failed to remove thumbnail directory", logging.Error(err))
	}
	return nil
}

// deliver pushes the montage everywhere it is wanted and reports whether at
// least one destination took it. Cloud upload failure falls back to the
// removable volume so the sheet survives somewhere.
func (b *Builder) deliver(ctx context.Context, date, name, path string) bool {
	delivered := false

	if err := b.remote.CopyTo(ctx, path, remotepath.Review(b.cfg, name)); err == nil {
		delivered = true
	} else {
		b.logger.Warn("montage upload failed", logging.Error(err))
		if handle, acqErr := b.volume.Acquire(ctx); acqErr == nil {
			dir := handle.MontageDir()
			if mkErr := os.MkdirAll(dir, 0o755); mkErr == nil {
				if cpErr := fileutil.CopyFile(path, filepath.Join(dir, name)); cpErr == nil {
					delivered = true
				} else {
					b.logger.Warn("montage volume fallback failed", logging.Error(cpErr))
				}
			}
			handle.Release()
		} else {
			b.logger.Warn("volume unavailable for montage fallback", logging.Error(acqErr))
		}
	}

	if len(b.cfg.Mail.Recipients) > 0 {
		subject := fmt.Sprintf("%s daily review %s", b.cfg.Project.Name, date)
		body := fmt.Sprintf("Daily review montage for %s attached.", date)
		if err := b.mail.Send(ctx, subject, body, []string{path}, b.cfg.Mail.Recipients); err == nil {
			delivered = true
		} else {
			b.logger.Warn("montage mail failed", logging.Error(err))
		}
	}

	if delivered {
		if err := b.notifier.NotifyMontageReady(ctx, date, name); err != nil {
			b.logger.Warn("montage notification failed", logging.Error(err))
		}
	}
	return delivered
}

func (b *Builder) heading(date string) string {
	title := cases.Title(language.English).String(b.cfg.Project.Name)
	return fmt.Sprintf("%s %s", title, date)
}

// thumbnailsByAge lists the day's thumbnails oldest first so the montage
// reads left to right through the day.
func thumbnailsByAge(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type aged struct {
		path    string
		modTime time.Time
	}
	var files []aged
	for _, entry := range entries {
		if entry.IsDir() || !photo.IsPhotoName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, aged{path: filepath.Join(dir, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

