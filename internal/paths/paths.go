package paths

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns ~/.voxprep, the default daemon data directory.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".voxprep")
}

// ConfigPath returns the config file path inside a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// DBPath returns the sqlite database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "voxprep.db")
}

// LogPath returns the daemon log file path inside a data directory.
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "voxprepd.log")
}

// EnsureDir creates the data directory tree with proper permissions.
func EnsureDir(dataDir string) error {
	dirs := []string{
		dataDir,
		filepath.Join(dataDir, "logs"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
