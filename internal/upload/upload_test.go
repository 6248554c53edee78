package upload_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lapse/internal/logging"
	"lapse/internal/photo"
	"lapse/internal/remotepath"
	"lapse/internal/sequence"
	"lapse/internal/testsupport"
	"lapse/internal/upload"
)

func newTestPhoto(t *testing.T, dir string, seq int) photo.Photo {
	t.Helper()
	capturedAt := time.Date(2026, time.August, 29, 14, 5, 0, 0, time.Local)
	p := photo.Photo{Sequence: seq, CapturedAt: capturedAt, Project: "Test Project"}
	p.Path = filepath.Join(dir, p.Name())
	if err := os.WriteFile(p.Path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	return p
}

func TestUploadVerifiedSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mgr := upload.NewManager(cfg, remote, nil, logging.NewNop())

	p := newTestPhoto(t, t.TempDir(), 42)
	if err := mgr.Upload(context.Background(), p); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if _, err := remote.Cat(context.Background(), remotepath.Photo(cfg, p)); err != nil {
		t.Fatalf("photo missing from remote: %v", err)
	}
}

func TestUploadTransportFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	remote.CopyErr = errors.New("connection reset")
	mgr := upload.NewManager(cfg, remote, nil, logging.NewNop())

	err := mgr.Upload(context.Background(), newTestPhoto(t, t.TempDir(), 1))
	var uploadErr *upload.Error
	if !errors.As(err, &uploadErr) || uploadErr.Kind != upload.TransportFailed {
		t.Fatalf("Upload error = %v, want kind %s", err, upload.TransportFailed)
	}
}

func TestUploadFailsWhenListingMissesFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	remote.DropAfterCopy = true
	mgr := upload.NewManager(cfg, remote, nil, logging.NewNop())

	err := mgr.Upload(context.Background(), newTestPhoto(t, t.TempDir(), 2))
	var uploadErr *upload.Error
	if !errors.As(err, &uploadErr) || uploadErr.Kind != upload.NotFoundAfterUpload {
		t.Fatalf("Upload error = %v, want kind %s", err, upload.NotFoundAfterUpload)
	}
}

func TestUploadFailsOnChecksumMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mgr := upload.NewManager(cfg, remote, nil, logging.NewNop())

	p := newTestPhoto(t, t.TempDir(), 3)
	remote.CorruptMD5[remotepath.Photo(cfg, p)] = true

	err := mgr.Upload(context.Background(), p)
	var uploadErr *upload.Error
	if !errors.As(err, &uploadErr) || uploadErr.Kind != upload.ChecksumMismatch {
		t.Fatalf("Upload error = %v, want kind %s", err, upload.ChecksumMismatch)
	}
}

func TestUploadAdvancesSequenceMarker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	auth := sequence.NewAuthority(cfg, remote, testsupport.NewFakeMounter(t), logging.NewNop())
	mgr := upload.NewManager(cfg, remote, auth, logging.NewNop())

	p := newTestPhoto(t, t.TempDir(), 42)
	if err := mgr.Upload(context.Background(), p); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	raw, err := remote.Cat(context.Background(), remotepath.Marker(cfg))
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if string(raw) != "00043\n" {
		t.Errorf("marker = %q, want %q", raw, "00043\n")
	}
}

func TestVerifyReportsIntactRemoteCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remote := testsupport.NewFakeRemote()
	mgr := upload.NewManager(cfg, remote, nil, logging.NewNop())

	p := newTestPhoto(t, t.TempDir(), 5)

	ok, err := mgr.Verify(context.Background(), p)
	if err != nil || ok {
		t.Fatalf("Verify before upload = %v, %v; want false, nil", ok, err)
	}

	if err := mgr.Upload(context.Background(), p); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ok, err = mgr.Verify(context.Background(), p)
	if err != nil || !ok {
		t.Fatalf("Verify after upload = %v, %v; want true, nil", ok, err)
	}
}
