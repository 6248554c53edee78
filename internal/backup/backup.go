// Package backup maintains the verified second copy of every photo on the
// removable volume. The staging copy is the one that moves: a successful
// backup relocates the photo into the volume's date partition, and a failed
// one leaves staging untouched for the next attempt.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lapse/internal/fileutil"
	"lapse/internal/logging"
	"lapse/internal/photo"
	"lapse/internal/volume"
)

// ErrorKind classifies backup failures.
type ErrorKind string

const (
	// VolumeUnavailable means the removable volume could not be mounted.
	VolumeUnavailable ErrorKind = "volume_unavailable"
	// DirectoryCreateFailed means the date partition could not be created,
	// which usually signals a dying or read-only volume.
	DirectoryCreateFailed ErrorKind = "directory_create_failed"
	// InsufficientSpace means the volume lacks room for the photo.
	InsufficientSpace ErrorKind = "insufficient_space"
	// MoveFailed covers copy and rename errors during the move.
	MoveFailed ErrorKind = "move_failed"
	// ChecksumMismatch means the landed copy's digest differs from the
	// source digest.
	ChecksumMismatch ErrorKind = "checksum_mismatch"
)

// Error is a classified backup failure for one photo.
type Error struct {
	Kind  ErrorKind
	Photo string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backup %s: %s: %v", e.Photo, e.Kind, e.Err)
	}
	return fmt.Sprintf("backup %s: %s", e.Photo, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// freeSpace is swapped in tests; statfs answers for the test's own
// filesystem, not a simulated full volume.
var freeSpace = volume.FreeSpace

// Manager moves photos from staging onto the removable volume.
type Manager struct {
	volume volume.Mounter
	logger *slog.Logger
}

// NewManager constructs a backup manager.
func NewManager(vol volume.Mounter, logger *slog.Logger) *Manager {
	return &Manager{
		volume: vol,
		logger: logging.NewComponentLogger(logger, "backup"),
	}
}

// Backup moves one photo into the volume's date partition and verifies the
// landed copy by digest. The source file is only removed once the copy is
// proven intact.
func (m *Manager) Backup(ctx context.Context, p photo.Photo) error {
	handle, err := m.volume.Acquire(ctx)
	if err != nil {
		return &Error{Kind: VolumeUnavailable, Photo: p.Name(), Err: err}
	}
	defer handle.Release()

	info, err := os.Stat(p.Path)
	if err != nil {
		return &Error{Kind: MoveFailed, Photo: p.Name(), Err: err}
	}

	dir := handle.BackupDir(p.Date())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Kind: DirectoryCreateFailed, Photo: p.Name(), Err: err}
	}

	if free, err := freeSpace(handle.Root()); err == nil {
		if free < uint64(info.Size()) {
			return &Error{
				Kind:  InsufficientSpace,
				Photo: p.Name(),
				Err:   fmt.Errorf("%d bytes free, need %d", free, info.Size()),
			}
		}
	} else {
		m.logger.Warn("failed to measure free space", logging.Error(err))
	}

	dst := filepath.Join(dir, p.Name())
	if err := fileutil.MoveFileVerified(p.Path, dst); err != nil {
		return m.classifyMove(p, err)
	}

	m.logger.Info("photo backed up",
		logging.String(logging.FieldPhoto, p.Name()),
		logging.String("destination", dst),
	)
	return nil
}

func (m *Manager) classifyMove(p photo.Photo, err error) *Error {
	kind := MoveFailed
	if fileutil.IsDigestMismatch(err) {
		kind = ChecksumMismatch
	}
	return &Error{Kind: kind, Photo: p.Name(), Err: err}
}

// Quarantine moves a photo into the volume's quarantine folder. End-of-day
// reconciliation sends photos here when the cloud keeps rejecting them, so
// they survive local cleanup without blocking it.
func (m *Manager) Quarantine(ctx context.Context, p photo.Photo) error {
	handle, err := m.volume.Acquire(ctx)
	if err != nil {
		return &Error{Kind: VolumeUnavailable, Photo: p.Name(), Err: err}
	}
	defer handle.Release()

	dir := handle.QuarantineDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Kind: DirectoryCreateFailed, Photo: p.Name(), Err: err}
	}
	if err := fileutil.MoveFileVerified(p.Path, filepath.Join(dir, p.Name())); err != nil {
		return m.classifyMove(p, err)
	}

	m.logger.Warn("photo quarantined", logging.String(logging.FieldPhoto, p.Name()))
	return nil
}
