// Package upload transfers photos to the cloud remote and verifies every
// transfer by re-listing the destination and comparing digests. Verification
// is authoritative: a clean transport exit without a verified listing and
// matching checksum is still a failure.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"lapse/internal/config"
	"lapse/internal/fileutil"
	"lapse/internal/logging"
	"lapse/internal/photo"
	"lapse/internal/remotepath"
	"lapse/internal/sequence"
	"lapse/internal/services/rclone"
)

// ErrorKind classifies upload failures.
type ErrorKind string

const (
	// TransportFailed covers rclone invocation and transfer errors.
	TransportFailed ErrorKind = "transport_failed"
	// NotFoundAfterUpload means the transfer reported success but the remote
	// listing does not contain the photo.
	NotFoundAfterUpload ErrorKind = "not_found_after_upload"
	// ChecksumMismatch means the remote object's digest differs from the
	// local file's.
	ChecksumMismatch ErrorKind = "checksum_mismatch"
)

// Error is a classified upload failure for one photo.
type Error struct {
	Kind  ErrorKind
	Photo string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %s: %v", e.Photo, e.Kind, e.Err)
	}
	return fmt.Sprintf("upload %s: %s", e.Photo, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Manager uploads photos to the configured remote.
type Manager struct {
	cfg       *config.Config
	remote    rclone.Client
	sequences *sequence.Authority
	logger    *slog.Logger
}

// NewManager constructs an upload manager. The sequence authority may be nil
// when marker maintenance is not wanted.
func NewManager(cfg *config.Config, remote rclone.Client, sequences *sequence.Authority, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		remote:    remote,
		sequences: sequences,
		logger:    logging.NewComponentLogger(logger, "upload"),
	}
}

// Upload transfers one photo and verifies it landed intact. On success the
// cloud sequence marker is raised past the photo's number so a lost local
// counter can be rebuilt from the remote alone.
func (m *Manager) Upload(ctx context.Context, p photo.Photo) error {
	dest := remotepath.Photo(m.cfg, p)

	if err := m.remote.CopyTo(ctx, p.Path, dest); err != nil {
		return &Error{Kind: TransportFailed, Photo: p.Name(), Err: err}
	}

	names, err := m.remote.List(ctx, remotepath.PhotoDir(m.cfg, p.Month(), p.Date()))
	if err != nil {
		return &Error{Kind: TransportFailed, Photo: p.Name(), Err: err}
	}
	if !slices.Contains(names, p.Name()) {
		return &Error{Kind: NotFoundAfterUpload, Photo: p.Name()}
	}

	localSum, err := fileutil.MD5File(p.Path)
	if err != nil {
		return &Error{Kind: TransportFailed, Photo: p.Name(), Err: err}
	}
	remoteSum, err := m.remote.MD5(ctx, dest)
	if err != nil {
		return &Error{Kind: TransportFailed, Photo: p.Name(), Err: err}
	}
	if localSum != remoteSum {
		return &Error{
			Kind:  ChecksumMismatch,
			Photo: p.Name(),
			Err:   fmt.Errorf("local %s, remote %s", localSum, remoteSum),
		}
	}

	if m.sequences != nil {
		if err := m.sequences.AdvanceMarker(ctx, p.Sequence+1); err != nil {
			m.logger.Warn("failed to advance cloud sequence marker", logging.Error(err))
		}
	}

	m.logger.Info("photo uploaded",
		logging.String(logging.FieldPhoto, p.Name()),
		logging.String("remote", dest),
	)
	return nil
}

// Verify reports whether a photo is present and intact on the remote.
// Cleanup calls it before a local backup copy may be deleted.
func (m *Manager) Verify(ctx context.Context, p photo.Photo) (bool, error) {
	names, err := m.remote.List(ctx, remotepath.PhotoDir(m.cfg, p.Month(), p.Date()))
	if err != nil {
		return false, err
	}
	if !slices.Contains(names, p.Name()) {
		return false, nil
	}
	localSum, err := fileutil.MD5File(p.Path)
	if err != nil {
		return false, err
	}
	remoteSum, err := m.remote.MD5(ctx, remotepath.Photo(m.cfg, p))
	if err != nil {
		return false, err
	}
	return localSum == remoteSum, nil
}
