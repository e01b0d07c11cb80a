package config

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for arena.
type Config struct {
	Models   ModelsConfig   `json:"models" yaml:"models"`
	Sessions SessionsConfig `json:"sessions" yaml:"sessions"`
	Render   RenderConfig   `json:"render" yaml:"render"`
	Agent    AgentConfig    `json:"agent" yaml:"agent"`
	Events   EventsConfig   `json:"events" yaml:"events"`
	Vs       VsConfig       `json:"vs" yaml:"vs"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default" yaml:"default"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver        string         `json:"driver" yaml:"driver"` // "anthropic", "openai", "mistral", "ollama", "gemini"
	Type          string         `json:"type,omitempty" yaml:"type,omitempty"` // "chat" (default) or "embedding"
	Model         string         `json:"model" yaml:"model"`
	Models        []string       `json:"models,omitempty" yaml:"models,omitempty"` // extra model names addressable as provider:model
	BaseURL       string         `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Auth          AuthConfig     `json:"auth" yaml:"auth"`
	MaxTokens     int            `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	ContextWindow int            `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	Tags          []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Timeout       Duration       `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Options       map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Direct API key, ${VAR} or ENC[age:...]
}

// SessionsConfig selects the conversation store.
type SessionsConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "file" (default) or "sqlite"
	Dir    string `json:"dir" yaml:"dir"`       // default: $ARENA_PATH/sessions
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	Style string `json:"style" yaml:"style"` // "auto", "arena", "plain" or a glamour standard style
	Width int    `json:"width,omitempty" yaml:"width,omitempty"` // 0 = detect
	Color *bool  `json:"color,omitempty" yaml:"color,omitempty"` // nil = detect
}

// AgentConfig holds conversation settings.
type AgentConfig struct {
	SystemPrompt string            `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Compression  CompressionConfig `json:"compression" yaml:"compression"`
}

// CompressionConfig tunes session summarization.
type CompressionConfig struct {
	Disabled      bool    `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Threshold     float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	PreserveRatio float64 `json:"preserve_ratio,omitempty" yaml:"preserve_ratio,omitempty"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int    `json:"buffer_size" yaml:"buffer_size"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogDir     string `json:"log_dir" yaml:"log_dir"` // JSONL event log; default $ARENA_PATH/logs
}

// VsConfig holds versus mode settings.
type VsConfig struct {
	Models []string `json:"models,omitempty" yaml:"models,omitempty"` // used by ".vs" without arguments
}

// Duration wraps time.Duration for JSON and YAML unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	return d.parse(strings.Trim(string(b), `"`))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
