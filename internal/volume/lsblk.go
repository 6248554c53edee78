package volume

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// lsblkOutput runs lsblk and returns its raw output. Package-level so tests
// can substitute canned listings.
var lsblkOutput = func(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "lsblk", "-P", "-o", "PATH,LABEL,FSTYPE,MOUNTPOINT").Output()
	if err != nil {
		return "", fmt.Errorf("run lsblk: %w", err)
	}
	return string(out), nil
}

// resolveByLabel finds the block device carrying the given filesystem label.
// It returns the device path and, when the device is already mounted, its
// current mount point.
func resolveByLabel(ctx context.Context, label string) (device, mountPoint string, err error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", "", fmt.Errorf("no volume label configured")
	}

	output, err := lsblkOutput(ctx)
	if err != nil {
		return "", "", err
	}

	device, mountPoint, ok := parseLSBLKByLabel(output, label)
	if !ok {
		return "", "", fmt.Errorf("no device with label %q attached", label)
	}
	return device, mountPoint, nil
}

// parseLSBLKByLabel scans lsblk -P output for the row with the wanted label.
func parseLSBLKByLabel(output, label string) (device, mountPoint string, ok bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row := parseLSBLKKeyValueLine(line)
		if len(row) == 0 {
			continue
		}
		if row["LABEL"] != label {
			continue
		}
		if row["PATH"] == "" {
			continue
		}
		return row["PATH"], row["MOUNTPOINT"], true
	}
	return "", "", false
}

func parseLSBLKKeyValueLine(line string) map[string]string {
	result := make(map[string]string)
	fields := splitLSBLKFields(line)
	for _, field := range fields {
		parts := strings.SplitN(field, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"")
		result[key] = value
	}
	return result
}

// splitLSBLKFields splits a -P line on spaces outside double quotes, so
// mount points containing spaces survive parsing.
func splitLSBLKFields(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields
}
