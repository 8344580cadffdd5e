package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.netsift/logs/),
// falling back to the temp directory when the home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".netsift", "logs")
	}
	return filepath.Join(home, ".netsift", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "netsift.log")
}
