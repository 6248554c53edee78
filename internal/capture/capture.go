// Package capture drives the camera binary and turns a successful exposure
// into a named, digest-stamped photo in the staging directory.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lapse/internal/config"
	"lapse/internal/fileutil"
	"lapse/internal/logging"
	"lapse/internal/photo"
	"lapse/internal/services"
	"lapse/internal/services/camera"
)

// ErrorKind classifies capture failures.
type ErrorKind string

const (
	// Timeout means the camera binary did not finish inside the capture
	// timeout.
	Timeout ErrorKind = "timeout"
	// DeviceError covers camera binary failures, usually a busy or missing
	// sensor.
	DeviceError ErrorKind = "device_error"
	// FileNotCreated means the binary exited cleanly but left no usable
	// image behind.
	FileNotCreated ErrorKind = "file_not_created"
)

// Error is a classified capture failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("capture: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

const captureAttempts = 2

// Controller owns one camera and the staging directory photos land in.
type Controller struct {
	cfg    *config.Config
	camera camera.Client
	logger *slog.Logger

	now func() time.Time
}

// NewController constructs a capture controller.
func NewController(cfg *config.Config, cam camera.Client, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		camera: cam,
		logger: logging.NewComponentLogger(logger, "capture"),
		now:    time.Now,
	}
}

// Capture exposes one frame under the given sequence number and stages it.
// The camera is retried once after a backoff; each attempt gets its own
// timeout.
func (c *Controller) Capture(ctx context.Context, seq int) (photo.Photo, error) {
	capturedAt := c.now()
	p := photo.Photo{
		Sequence:   seq,
		CapturedAt: capturedAt,
		Project:    c.cfg.Project.Name,
	}
	p.Path = filepath.Join(c.cfg.Paths.StagingDir, p.Name())

	if err := os.MkdirAll(c.cfg.Paths.StagingDir, 0o755); err != nil {
		return photo.Photo{}, &Error{Kind: FileNotCreated, Err: err}
	}

	policy := services.RetryPolicy{
		Attempts: captureAttempts,
		Backoff:  time.Duration(c.cfg.Camera.RetryBackoff) * time.Second,
	}
	err := policy.Do(ctx, func(ctx context.Context) error {
		attemptCtx := ctx
		if c.cfg.Camera.CaptureTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.Camera.CaptureTimeout)*time.Second)
			defer cancel()
		}
		if err := c.camera.Capture(attemptCtx, p.Path); err != nil {
			return err
		}
		// A clean exit without a usable file counts as a failed attempt and
		// shares the single retry.
		info, err := os.Stat(p.Path)
		if err != nil {
			return &Error{Kind: FileNotCreated, Err: err}
		}
		if info.Size() == 0 {
			_ = os.Remove(p.Path)
			return &Error{Kind: FileNotCreated, Err: fmt.Errorf("camera wrote empty file %s", p.Name())}
		}
		return nil
	})
	if err != nil {
		return photo.Photo{}, classify(err)
	}

	digest, err := fileutil.HashFile(p.Path)
	if err != nil {
		return photo.Photo{}, &Error{Kind: FileNotCreated, Err: err}
	}
	p.Digest = digest

	c.logger.Info("photo captured",
		logging.Int(logging.FieldSequence, seq),
		logging.String(logging.FieldPhoto, p.Name()),
	)
	return p, nil
}

func classify(err error) *Error {
	var capErr *Error
	if errors.As(err, &capErr) {
		return capErr
	}
	if errors.Is(err, services.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Timeout, Err: err}
	}
	return &Error{Kind: DeviceError, Err: err}
}
