package volume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"
	"golang.org/x/sys/unix"

	"lapse/internal/logging"
)

// Detect enumerates attached block partitions via udev and reports the
// device path carrying the configured label. It answers "is the backup
// volume physically present" without mounting anything.
func (m *Manager) Detect(ctx context.Context) (string, error) {
	partitions, err := enumeratePartitions(ctx)
	if err != nil {
		return "", err
	}
	if len(partitions) == 0 {
		return "", fmt.Errorf("no block partitions attached")
	}

	device, _, err := resolveByLabel(ctx, m.cfg.Label)
	if err != nil {
		return "", err
	}

	for _, devname := range partitions {
		if devname == device {
			m.logger.Debug("volume detected",
				logging.String("label", m.cfg.Label),
				logging.String("device", device),
			)
			return device, nil
		}
	}
	return "", fmt.Errorf("device %s with label %q not visible to udev", device, m.cfg.Label)
}

// enumeratePartitions walks existing udev devices and collects block
// partition device paths. Enumeration has no natural end signal, so a short
// idle window closes the collection.
func enumeratePartitions(ctx context.Context) ([]string, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error)

	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "partition",
		},
	})

	quit := crawler.ExistingDevices(queue, errs, rules)
	defer close(quit)

	var devices []string
	idle := time.NewTimer(500 * time.Millisecond)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		case err := <-errs:
			return devices, fmt.Errorf("udev crawl: %w", err)
		case device, ok := <-queue:
			if !ok {
				return devices, nil
			}
			if devname := device.Env["DEVNAME"]; devname != "" {
				devices = append(devices, devname)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(500 * time.Millisecond)
		case <-idle.C:
			return devices, nil
		}
	}
}

// FreeSpace returns the number of bytes available to unprivileged writers on
// the filesystem containing path.
func FreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// WriteProbe verifies the directory accepts writes by creating, reading
// back, and removing a small file.
func WriteProbe(dir string) error {
	path := filepath.Join(dir, ".lapse-write-probe")
	payload := []byte(time.Now().Format(time.RFC3339Nano))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	read, err := os.ReadFile(path)
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("read probe back: %w", err)
	}
	if string(read) != string(payload) {
		_ = os.Remove(path)
		return fmt.Errorf("probe content mismatch on %s", dir)
	}
	return os.Remove(path)
}
