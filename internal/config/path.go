package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appDir = "tally"

// ExpandPath expands a leading ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}

// ConfigDir returns the directory searched for config.yaml, honoring
// XDG_CONFIG_HOME.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the directory holding the database, honoring
// XDG_DATA_HOME.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// DefaultDatabasePath is used when database.path is not configured.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), "tally.db")
}

func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" && filepath.IsAbs(base) {
		return filepath.Join(base, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appDir)
}

// defaultSearchPaths lists config directories from highest priority down.
func defaultSearchPaths() []string {
	paths := []string{"."}
	if dir := ConfigDir(); dir != "" {
		paths = append([]string{dir}, paths...)
	}
	return paths
}
