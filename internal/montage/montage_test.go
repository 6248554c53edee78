package montage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lapse/internal/logging"
	"lapse/internal/montage"
	"lapse/internal/photo"
	"lapse/internal/remotepath"
	"lapse/internal/testsupport"
)

type fakeImaging struct {
	thumbnails []string
	labels     []string
	montages   int
	inputs     []string
	heading    string
	err        error
}

func (f *fakeImaging) Thumbnail(ctx context.Context, src, dst, label string) error {
	if f.err != nil {
		return f.err
	}
	f.thumbnails = append(f.thumbnails, dst)
	f.labels = append(f.labels, label)
	return os.WriteFile(dst, []byte("thumb"), 0o644)
}

func (f *fakeImaging) Montage(ctx context.Context, inputs []string, dst, heading string, tileWidth int) error {
	if f.err != nil {
		return f.err
	}
	f.montages++
	f.inputs = inputs
	f.heading = heading
	return os.WriteFile(dst, []byte("montage"), 0o644)
}

type fakeMailer struct {
	sent        int
	subject     string
	attachments []string
	err         error
}

func (f *fakeMailer) Send(ctx context.Context, subject, body string, attachments, recipients []string) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	f.subject = subject
	f.attachments = attachments
	return nil
}

func stagePhoto(t *testing.T, dir string, seq int, clock string) photo.Photo {
	t.Helper()
	capturedAt, err := time.ParseInLocation("2006-01-02 15:04", "2026-08-29 "+clock, time.Local)
	if err != nil {
		t.Fatalf("parse clock: %v", err)
	}
	p := photo.Photo{Sequence: seq, CapturedAt: capturedAt}
	p.Path = filepath.Join(dir, p.Name())
	if err := os.WriteFile(p.Path, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	return p
}

func TestThumbnailUsesFilenameClock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	img := &fakeImaging{}
	builder := montage.NewBuilder(cfg, img, testsupport.NewFakeRemote(), &fakeMailer{},
		testsupport.NewFakeMounter(t), &testsupport.RecordingNotifier{}, logging.NewNop())

	p := stagePhoto(t, t.TempDir(), 7, "09:30")
	if err := builder.Thumbnail(context.Background(), p); err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if len(img.labels) != 1 || img.labels[0] != "09:30" {
		t.Errorf("labels = %v, want [09:30]", img.labels)
	}
	want := filepath.Join(cfg.Paths.ThumbnailDir, "2026-08-29", p.Name())
	if img.thumbnails[0] != want {
		t.Errorf("thumbnail path = %q, want %q", img.thumbnails[0], want)
	}
}

func TestBuildDailyEmptyDayNotifiesAndSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &testsupport.RecordingNotifier{}
	builder := montage.NewBuilder(cfg, &fakeImaging{}, testsupport.NewFakeRemote(), &fakeMailer{},
		testsupport.NewFakeMounter(t), notifier, logging.NewNop())

	if err := builder.BuildDaily(context.Background(), "2026-08-29"); err != nil {
		t.Fatalf("BuildDaily: %v", err)
	}
	if !notifier.Has("no_thumbnails: 2026-08-29") {
		t.Errorf("missing no-thumbnails notification, events = %v", notifier.Events)
	}
}

func TestBuildDailyAssemblesUploadsAndCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Mail.Recipients = []string{"review@example.com"}
	img := &fakeImaging{}
	remote := testsupport.NewFakeRemote()
	mail := &fakeMailer{}
	notifier := &testsupport.RecordingNotifier{}
	builder := montage.NewBuilder(cfg, img, remote, mail,
		testsupport.NewFakeMounter(t), notifier, logging.NewNop())

	thumbDir := filepath.Join(cfg.Paths.ThumbnailDir, "2026-08-29")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i, name := range []string{"00001_2026-08-29_0900.jpg", "00002_2026-08-29_0930.jpg"} {
		path := filepath.Join(thumbDir, name)
		if err := os.WriteFile(path, []byte("thumb"), 0o644); err != nil {
			t.Fatalf("write thumb: %v", err)
		}
		stamp := time.Now().Add(time.Duration(i-5) * time.Minute)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if err := builder.BuildDaily(context.Background(), "2026-08-29"); err != nil {
		t.Fatalf("BuildDaily: %v", err)
	}

	if img.montages != 1 || len(img.inputs) != 2 {
		t.Fatalf("montage calls = %d, inputs = %v", img.montages, img.inputs)
	}
	if filepath.Base(img.inputs[0]) != "00001_2026-08-29_0900.jpg" {
		t.Errorf("inputs not ordered oldest first: %v", img.inputs)
	}
	if _, err := remote.Cat(context.Background(), remotepath.Review(cfg, "2026-08-29_daily_review.jpg")); err != nil {
		t.Errorf("montage missing from remote: %v", err)
	}
	if mail.sent != 1 {
		t.Errorf("mail sent %d times, want 1", mail.sent)
	}
	if !notifier.Has("montage_ready: 2026-08-29") {
		t.Errorf("missing montage-ready notification, events = %v", notifier.Events)
	}
	if _, err := os.Stat(thumbDir); !os.IsNotExist(err) {
		t.Errorf("thumbnail directory not removed")
	}
}

func TestBuildDailyFallsBackToVolumeOnUploadFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	remote.CopyErr = errors.New("network unreachable")
	mounter := testsupport.NewFakeMounter(t)
	builder := montage.NewBuilder(cfg, &fakeImaging{}, remote, &fakeMailer{},
		mounter, &testsupport.RecordingNotifier{}, logging.NewNop())

	thumbDir := filepath.Join(cfg.Paths.ThumbnailDir, "2026-08-29")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(thumbDir, "00001_2026-08-29_0900.jpg"), []byte("thumb"), 0o644); err != nil {
		t.Fatalf("write thumb: %v", err)
	}

	if err := builder.BuildDaily(context.Background(), "2026-08-29"); err != nil {
		t.Fatalf("BuildDaily: %v", err)
	}
	fallback := filepath.Join(mounter.Dir, "montages", "2026-08-29_daily_review.jpg")
	if _, err := os.Stat(fallback); err != nil {
		t.Errorf("montage missing from volume fallback: %v", err)
	}
}
