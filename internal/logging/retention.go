package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Rotate copies the active log file to a date-stamped sibling and truncates
// the original in place, so writers holding the file open keep appending to
// the fresh log. It returns the rotated file's path. A missing or empty log
// rotates to nothing.
func Rotate(path string, date time.Time) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("stat log: %w", err)
	}
	if info.Size() == 0 {
		return "", nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rotated := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s-%s.log", base, date.Format("2006-01-02")))
	if _, err := os.Stat(rotated); err == nil {
		rotated = filepath.Join(filepath.Dir(path), fmt.Sprintf("%s-%s-%s.log", base, date.Format("2006-01-02"), time.Now().Format("150405")))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	if err := os.WriteFile(rotated, data, 0o644); err != nil {
		return "", fmt.Errorf("write rotated log: %w", err)
	}
	if err := os.Truncate(path, 0); err != nil {
		return "", fmt.Errorf("truncate log: %w", err)
	}
	return rotated, nil
}

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				if abs, err := filepath.Abs(trimmed); err == nil {
					exclusions[abs] = struct{}{}
				}
			}
		}
	}

	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				matched, err := filepath.Match(pat, name)
				if err != nil || !matched {
					continue
				}
			}
			fullPath := filepath.Join(dir, name)
			if abs, err := filepath.Abs(fullPath); err == nil {
				fullPath = abs
			}
			if _, skip := exclusions[fullPath]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(fullPath); err != nil {
				if logger != nil {
					logger.Warn("failed to prune old log", String("path", fullPath), Error(err))
				}
				continue
			}
			if logger != nil {
				logger.Debug("pruned old log", String("path", fullPath))
			}
		}
	}
}
