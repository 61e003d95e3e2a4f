package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is how many user config backups are kept.
	MaxBackups = 3

	// BackupSuffix precedes the timestamp in backup file names.
	BackupSuffix = ".bak"
)

// WriteUserConfig writes data to the user config path. An existing file
// is only replaced when force is set, and is backed up first. It returns
// the backup path, if one was made.
func WriteUserConfig(data []byte, force bool) (string, error) {
	path := GetUserConfigPath()

	var backup string
	if UserConfigExists() {
		if !force {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		var err error
		if backup, err = BackupUserConfig(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backup, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return backup, fmt.Errorf("failed to write config: %w", err)
	}
	return backup, nil
}

// BackupUserConfig copies the user config to a timestamped sibling and
// prunes old copies. With no user config it returns "" and nil.
func BackupUserConfig() (string, error) {
	path := GetUserConfigPath()
	if !UserConfigExists() {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backup := fmt.Sprintf("%s%s.%s", path, BackupSuffix, time.Now().Format("20060102-150405.000000000"))
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// best effort
	_ = pruneBackups()
	return backup, nil
}

// ListUserConfigBackups returns backups newest first.
func ListUserConfigBackups() ([]string, error) {
	path := GetUserConfigPath()
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + BackupSuffix + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}
	// Timestamps sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func pruneBackups() error {
	backups, err := ListUserConfigBackups()
	if err != nil || len(backups) <= MaxBackups {
		return err
	}
	for _, b := range backups[MaxBackups:] {
		_ = os.Remove(b)
	}
	return nil
}
