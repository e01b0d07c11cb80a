package config

import (
	"os"
	"path/filepath"
)

// ArenaPath returns the root directory for arena data.
// It uses $ARENA_PATH if set, otherwise defaults to ~/.arena.
func ArenaPath() string {
	if v := os.Getenv("ARENA_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".arena")
	}
	return filepath.Join(home, ".arena")
}

// ConfigPath returns the path to the arena config file.
func ConfigPath() string {
	return filepath.Join(ArenaPath(), "config.jsonc")
}

// DotenvPath returns the path to the arena .env file.
func DotenvPath() string {
	return filepath.Join(ArenaPath(), ".env")
}
