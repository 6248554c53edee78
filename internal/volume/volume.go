package volume

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"lapse/internal/config"
	"lapse/internal/logging"
)

// runCommand executes a system command. It is a package-level variable so
// tests can replace it with a stub.
var runCommand = func(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// MountError reports a failure to make the removable volume available.
type MountError struct {
	Label string
	Err   error
}

func (e *MountError) Error() string {
	return fmt.Sprintf("mount volume %q: %v", e.Label, e.Err)
}

func (e *MountError) Unwrap() error { return e.Err }

// Mounter grants scoped access to the removable volume. Pipeline components
// depend on this interface so tests can substitute a fake volume.
type Mounter interface {
	Acquire(ctx context.Context) (Handle, error)
}

// Handle grants access to the mounted volume until released.
type Handle interface {
	// Root returns the volume's mount point for the lifetime of the handle.
	Root() string
	// BackupDir returns the date-partitioned backup directory on the volume.
	BackupDir(date string) string
	// BackupRoot returns the backup tree root on the volume.
	BackupRoot() string
	// QuarantineDir returns the quarantine folder on the volume.
	QuarantineDir() string
	// CounterFile returns the sequence counter mirror on the volume.
	CounterFile() string
	// MontageDir returns the montage fallback folder on the volume.
	MontageDir() string
	// Release returns the handle. The volume is unmounted once the last
	// handle is released, and only if this process mounted it.
	Release()
}

// Manager tracks mount ownership for the removable backup volume with
// reference counting, so nested operations needing the volume share one
// mount and never unmount it out from under each other.
type Manager struct {
	cfg    config.Volume
	logger *slog.Logger

	mu        sync.Mutex
	refs      int
	root      string
	weMounted bool
}

// NewManager constructs a volume manager from configuration.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg.Volume,
		logger: logging.NewComponentLogger(logger, "volume"),
	}
}

type handle struct {
	m        *Manager
	released bool
}

// Acquire makes the volume available and returns a handle rooted at its
// mount point. Callers must Release the handle when done.
func (m *Manager) Acquire(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs > 0 {
		m.refs++
		return &handle{m: m}, nil
	}

	root, weMounted, err := m.ensureMounted(ctx)
	if err != nil {
		return nil, &MountError{Label: m.cfg.Label, Err: err}
	}

	m.refs = 1
	m.root = root
	m.weMounted = weMounted
	return &handle{m: m}, nil
}

func (m *Manager) ensureMounted(ctx context.Context) (string, bool, error) {
	timeout := time.Duration(m.cfg.MountTimeout) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	device, mountedAt, err := resolveByLabel(ctx, m.cfg.Label)
	if err != nil {
		return "", false, err
	}

	// Already mounted, by the system or a prior run: use it in place.
	if mountedAt != "" {
		m.logger.Debug("volume already mounted",
			logging.String("label", m.cfg.Label),
			logging.String("mount_point", mountedAt),
		)
		return mountedAt, false, nil
	}

	if err := os.MkdirAll(m.cfg.MountPoint, 0o755); err != nil {
		return "", false, fmt.Errorf("create mount point: %w", err)
	}

	m.logger.Info("mounting volume",
		logging.String("label", m.cfg.Label),
		logging.String("device", device),
		logging.String("mount_point", m.cfg.MountPoint),
	)
	if err := runCommand(ctx, "mount", device, m.cfg.MountPoint); err != nil {
		return "", false, fmt.Errorf("mount %s: %w", device, err)
	}
	return m.cfg.MountPoint, true, nil
}

// release decrements the refcount and unmounts when this manager performed
// the mount and no handles remain. Unmount failures are logged, not
// returned; the volume stays mounted until manual intervention.
func (m *Manager) release(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		return
	}
	m.refs--
	if m.refs > 0 {
		return
	}

	root := m.root
	weMounted := m.weMounted
	m.root = ""
	m.weMounted = false

	if !weMounted {
		return
	}
	m.logger.Info("unmounting volume", logging.String("mount_point", root))
	if err := runCommand(ctx, "umount", root); err != nil {
		m.logger.Warn("failed to unmount volume",
			logging.String("mount_point", root),
			logging.Error(err),
		)
	}
}

func (h *handle) Root() string {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	return h.m.root
}

func (h *handle) BackupDir(date string) string {
	return filepath.Join(h.Root(), h.m.cfg.BackupDir, date)
}

func (h *handle) BackupRoot() string {
	return filepath.Join(h.Root(), h.m.cfg.BackupDir)
}

func (h *handle) QuarantineDir() string {
	return filepath.Join(h.Root(), h.m.cfg.QuarantineDir)
}

func (h *handle) CounterFile() string {
	return filepath.Join(h.Root(), "sequence.txt")
}

func (h *handle) MontageDir() string {
	return filepath.Join(h.Root(), "montages")
}

func (h *handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.m.release(context.Background())
}

var _ Mounter = (*Manager)(nil)
