// Package config resolves pennywise settings from flags, the environment,
// .env files and the config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "pennywise"

// ExpandPath resolves a leading ~ to the home directory and then expands
// $VAR references. Paths that cannot be expanded are returned unchanged.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~", strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}

// ConfigDir is where config.yaml and the user .env live:
// $XDG_CONFIG_HOME/pennywise, else ~/.config/pennywise.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir holds the default database: $XDG_DATA_HOME/pennywise, else
// ~/.local/share/pennywise.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// DefaultDatabasePath is used when database.path is not configured.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), appName+".db")
}

// DotEnvFiles lists the .env files read at startup, project file first so it
// takes precedence over the user file.
func DotEnvFiles() []string {
	return []string{".env", filepath.Join(ConfigDir(), ".env")}
}

// ConfigSearchPaths lists the directories searched for config.yaml when no
// --config flag is given.
func ConfigSearchPaths() []string {
	return []string{ConfigDir(), "."}
}

func xdgDir(env, fallback string) string {
	if base := strings.TrimSpace(os.Getenv(env)); base != "" {
		return filepath.Join(ExpandPath(base), appName)
	}
	return ExpandPath(filepath.Join("~", fallback, appName))
}
