package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArenaPath_Default(t *testing.T) {
	t.Setenv("ARENA_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := ArenaPath()
	want := filepath.Join(home, ".arena")
	if got != want {
		t.Errorf("ArenaPath() = %q, want %q", got, want)
	}
}

func TestArenaPath_EnvOverride(t *testing.T) {
	t.Setenv("ARENA_PATH", "/tmp/custom-arena")

	if got := ArenaPath(); got != "/tmp/custom-arena" {
		t.Errorf("ArenaPath() = %q, want %q", got, "/tmp/custom-arena")
	}
}

func TestConfigAndDotenvPath(t *testing.T) {
	t.Setenv("ARENA_PATH", "/tmp/test-arena")

	if got := ConfigPath(); got != "/tmp/test-arena/config.jsonc" {
		t.Errorf("ConfigPath() = %q", got)
	}
	if got := DotenvPath(); got != "/tmp/test-arena/.env" {
		t.Errorf("DotenvPath() = %q", got)
	}
}
