package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// UpdateInterval rewrites the capture interval in the configuration file at
// path, creating the file from the sample when it does not exist yet. Values
// outside 1..59 are rejected so the generated cron expression stays valid.
func UpdateInterval(path string, minutes int) error {
	if minutes < 1 || minutes > 59 {
		return fmt.Errorf("interval must be between 1 and 59 minutes, got %d", minutes)
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return err
	}
	if !exists {
		if err := CreateSample(resolvedPath); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			data = nil
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	section, _ := doc["schedule"].(map[string]any)
	if section == nil {
		section = make(map[string]any)
	}
	section["interval_minutes"] = minutes
	doc["schedule"] = section

	updated, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(resolvedPath, updated, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
