package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.songbook/logs, or a temp dir fallback when the
// home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".songbook", "logs")
	}
	return filepath.Join(home, ".songbook", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "songbook.log")
}
