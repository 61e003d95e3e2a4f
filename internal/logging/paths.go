package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.amanrag/logs, or a temp-dir equivalent when the
// home directory cannot be resolved.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amanrag", "logs")
	}
	return filepath.Join(home, ".amanrag", "logs")
}

// DefaultLogPath returns the CLI log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "amanrag.log")
}
