// Package models resolves model identifiers against the configured providers
// and builds eino chat models for them.
package models

import (
	"strings"

	"github.com/dohr-michael/arena/internal/config"
)

// Kind is the capability a model is resolved for.
type Kind string

const (
	KindChat      Kind = "chat"
	KindEmbedding Kind = "embedding"
)

// Model is one addressable backend: a provider plus a concrete model name.
// It is a value; copies never share mutable state with the registry.
type Model struct {
	ID       string // "provider" or "provider:model"
	Provider string
	Name     string
	Config   config.ProviderConfig // provider config with Model set to Name
}

func (m Model) String() string {
	return m.ID
}

// IsZero reports whether m is the zero Model.
func (m Model) IsZero() bool {
	return m.ID == ""
}

// SplitID splits "provider:model" into its parts. A bare provider name
// returns an empty model part.
func SplitID(id string) (provider, name string) {
	provider, name, _ = strings.Cut(strings.TrimSpace(id), ":")
	return provider, name
}
