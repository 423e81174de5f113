package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.evidencemcp/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".evidencemcp", "logs")
	}
	return filepath.Join(home, ".evidencemcp", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}
