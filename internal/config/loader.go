package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC (or YAML) config file, expands ${{ .Env.VAR }} templates,
// unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before parsing, since templates are in strings)
	expanded := []byte(expandEnvTemplates(string(data)))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	default:
		std, err := hujson.Standardize(expanded)
		if err != nil {
			return nil, fmt.Errorf("parse jsonc: %w", err)
		}
		if err := json.Unmarshal(std, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Sessions.Driver == "" {
		cfg.Sessions.Driver = "file"
	}
	if cfg.Sessions.Dir == "" {
		cfg.Sessions.Dir = filepath.Join(ArenaPath(), "sessions")
	}
	if cfg.Render.Style == "" {
		cfg.Render.Style = "auto"
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 256
	}
	if cfg.Events.LogLevel == "" {
		cfg.Events.LogLevel = "warn"
	}
	if cfg.Events.LogDir == "" {
		cfg.Events.LogDir = filepath.Join(ArenaPath(), "logs")
	}
	if cfg.Agent.Compression.Threshold == 0 {
		cfg.Agent.Compression.Threshold = 0.80
	}
	if cfg.Agent.Compression.PreserveRatio == 0 {
		cfg.Agent.Compression.PreserveRatio = 0.25
	}
	if cfg.Models.Providers == nil {
		cfg.Models.Providers = map[string]ProviderConfig{}
	}
	for name, p := range cfg.Models.Providers {
		if p.Type == "" {
			p.Type = "chat"
			cfg.Models.Providers[name] = p
		}
	}
	// Auth resolution is deferred to models.ResolveAuth() at client creation time.
}
