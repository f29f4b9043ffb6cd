package config

import (
	"os"
	"path/filepath"
)

const (
	// DefaultConnection is the connection profile used when none is named.
	DefaultConnection = "default"

	homeEnv = "RCMATE_HOME"
)

// Paths contains the on-disk layout of the rcmate home directory.
type Paths struct {
	Home     string // Application home directory
	ConfigDB string // SQLite configuration store path
	Logs     string // Logs directory
	TempDir  string // Temporary files directory
}

// GetHome returns the rcmate home directory. RCMATE_HOME overrides the
// default ~/.rcmate location.
func GetHome() string {
	if custom := os.Getenv(homeEnv); custom != "" {
		return ExpandPath(custom)
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".rcmate")
}

// GetPaths returns the full directory layout under the rcmate home.
func GetPaths() Paths {
	home := GetHome()
	return Paths{
		Home:     home,
		ConfigDB: filepath.Join(home, "config.db"),
		Logs:     filepath.Join(home, "logs"),
		TempDir:  filepath.Join(home, "tmp"),
	}
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// EnsureDirs creates the home directory structure if it does not exist.
func EnsureDirs() (Paths, error) {
	paths := GetPaths()

	dirs := []string{
		paths.Home,
		paths.Logs,
		paths.TempDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}

	return paths, nil
}
