package capture

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"lapse/internal/logging"
	"lapse/internal/services"
	"lapse/internal/testsupport"
)

type fakeCamera struct {
	calls    int
	failures int
	noWrites int
	err      error
	payload  []byte
}

func (f *fakeCamera) Capture(ctx context.Context, destination string) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	if f.calls <= f.failures+f.noWrites {
		// Clean exit without producing a file.
		return nil
	}
	payload := f.payload
	if payload == nil {
		payload = []byte("jpeg bytes")
	}
	return os.WriteFile(destination, payload, 0o644)
}

func newController(t *testing.T, cam *fakeCamera) *Controller {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Camera.RetryBackoff = 0
	ctrl := NewController(cfg, cam, logging.NewNop())
	ctrl.now = func() time.Time {
		return time.Date(2026, time.August, 29, 14, 5, 0, 0, time.Local)
	}
	return ctrl
}

func TestCaptureStagesNamedPhoto(t *testing.T) {
	ctrl := newController(t, &fakeCamera{})

	p, err := ctrl.Capture(context.Background(), 42)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if p.Name() != "00042_2026-08-29_1405.jpg" {
		t.Errorf("Name() = %q", p.Name())
	}
	if p.Digest == "" {
		t.Error("photo missing digest")
	}
	if _, err := os.Stat(p.Path); err != nil {
		t.Errorf("staged file missing: %v", err)
	}
}

func TestCaptureRetriesOnce(t *testing.T) {
	cam := &fakeCamera{failures: 1, err: errors.New("device busy")}
	ctrl := newController(t, cam)

	if _, err := ctrl.Capture(context.Background(), 1); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if cam.calls != 2 {
		t.Errorf("camera invoked %d times, want 2", cam.calls)
	}
}

func TestCaptureClassifiesDeviceError(t *testing.T) {
	cam := &fakeCamera{failures: 2, err: errors.New("device busy")}
	ctrl := newController(t, cam)

	_, err := ctrl.Capture(context.Background(), 1)
	var capErr *Error
	if !errors.As(err, &capErr) || capErr.Kind != DeviceError {
		t.Fatalf("Capture error = %v, want kind %s", err, DeviceError)
	}
}

func TestCaptureClassifiesTimeout(t *testing.T) {
	cam := &fakeCamera{failures: 2, err: services.ErrTimeout}
	ctrl := newController(t, cam)

	_, err := ctrl.Capture(context.Background(), 1)
	var capErr *Error
	if !errors.As(err, &capErr) || capErr.Kind != Timeout {
		t.Fatalf("Capture error = %v, want kind %s", err, Timeout)
	}
}

func TestCaptureRetriesWhenNoFileProduced(t *testing.T) {
	cam := &fakeCamera{noWrites: 1}
	ctrl := newController(t, cam)

	if _, err := ctrl.Capture(context.Background(), 1); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if cam.calls != 2 {
		t.Errorf("camera invoked %d times, want 2", cam.calls)
	}
}

func TestCaptureClassifiesMissingFile(t *testing.T) {
	cam := &fakeCamera{noWrites: 2}
	ctrl := newController(t, cam)

	_, err := ctrl.Capture(context.Background(), 1)
	var capErr *Error
	if !errors.As(err, &capErr) || capErr.Kind != FileNotCreated {
		t.Fatalf("Capture error = %v, want kind %s", err, FileNotCreated)
	}
	if cam.calls != 2 {
		t.Errorf("camera invoked %d times, want 2", cam.calls)
	}
}

func TestCaptureRejectsEmptyFile(t *testing.T) {
	cam := &fakeCamera{payload: []byte{}}
	ctrl := newController(t, cam)

	_, err := ctrl.Capture(context.Background(), 1)
	var capErr *Error
	if !errors.As(err, &capErr) || capErr.Kind != FileNotCreated {
		t.Fatalf("Capture error = %v, want kind %s", err, FileNotCreated)
	}
	if cam.calls != 2 {
		t.Errorf("empty files retried %d times, want 2", cam.calls)
	}
}
