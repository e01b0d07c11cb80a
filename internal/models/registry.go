package models

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/arena/internal/config"
)

// defaultContextWindows maps known model prefixes to their context window sizes.
var defaultContextWindows = map[string]int{
	"claude-opus-4":     200000,
	"claude-sonnet-4":   200000,
	"claude-haiku-4":    200000,
	"claude-3":          200000,
	"gpt-4o":            128000,
	"gpt-4.1":           1000000,
	"gpt-4-turbo":       128000,
	"gpt-4":             8192,
	"gpt-3.5-turbo":     16385,
	"o1":                200000,
	"o3":                200000,
	"gemini-2":          1000000,
	"mistral-large":     128000,
	"mistral-small":     128000,
	"codestral":         256000,
	"open-mistral-nemo": 128000,
}

const fallbackContextWindow = 100000

// clientEntry holds a lazily-created chat model.
type clientEntry struct {
	once  sync.Once
	model model.BaseChatModel
	err   error
}

// Registry is the model catalog: it resolves identifiers and hands out
// chat clients, created lazily and shared per model id.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]config.ProviderConfig
	defaultID string
	clients   map[string]*clientEntry
	create    CreateFunc
}

// NewRegistry creates a model registry from config. A nil create falls back
// to CreateModel without age decryption.
func NewRegistry(cfg config.ModelsConfig, create CreateFunc) *Registry {
	if create == nil {
		create = NewFactory(nil)
	}
	r := &Registry{
		providers: make(map[string]config.ProviderConfig, len(cfg.Providers)),
		defaultID: cfg.Default,
		clients:   make(map[string]*clientEntry),
		create:    create,
	}
	for name, p := range cfg.Providers {
		r.providers[name] = p
	}
	return r
}

// Retrieve resolves id ("provider" or "provider:model") to a Model of the given kind.
func (r *Registry) Retrieve(id string, kind Kind) (Model, error) {
	provider, name := SplitID(id)

	r.mu.RLock()
	p, ok := r.providers[provider]
	r.mu.RUnlock()

	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	if providerKind(p) != kind {
		return Model{}, fmt.Errorf("%w: %q is not a %s model", ErrUnknownModel, id, kind)
	}

	canonical := provider
	if name == "" || name == p.Model {
		name = p.Model
	} else {
		if len(p.Models) > 0 && !slices.Contains(p.Models, name) {
			return Model{}, fmt.Errorf("%w: %q is not listed by provider %q", ErrUnknownModel, name, provider)
		}
		canonical = provider + ":" + name
	}

	bound := p
	bound.Model = name
	return Model{ID: canonical, Provider: provider, Name: name, Config: bound}, nil
}

// Default returns the configured default chat model.
func (r *Registry) Default() (Model, error) {
	if r.defaultID == "" {
		return Model{}, fmt.Errorf("no default model configured")
	}
	return r.Retrieve(r.defaultID, KindChat)
}

// List returns every addressable model of the given kind, sorted by id.
func (r *Registry) List(kind Kind) []Model {
	r.mu.RLock()
	var ids []string
	for name, p := range r.providers {
		if providerKind(p) != kind {
			continue
		}
		ids = append(ids, name)
		for _, m := range p.Models {
			if m != p.Model {
				ids = append(ids, name+":"+m)
			}
		}
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	out := make([]Model, 0, len(ids))
	for _, id := range ids {
		if m, err := r.Retrieve(id, kind); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// Client returns the chat model for m, creating it on first use.
// Creation errors are not cached.
func (r *Registry) Client(ctx context.Context, m Model) (model.BaseChatModel, error) {
	r.mu.Lock()
	entry, ok := r.clients[m.ID]
	if !ok {
		entry = &clientEntry{}
		r.clients[m.ID] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.model, entry.err = r.create(ctx, m.Config)
	})

	if entry.err != nil {
		r.mu.Lock()
		if r.clients[m.ID] == entry {
			delete(r.clients, m.ID)
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("create client for %s: %w", m.ID, entry.err)
	}
	return entry.model, nil
}

// ContextWindow returns the context window size for m.
func (r *Registry) ContextWindow(m Model) int {
	return resolveContextWindow(m.Config)
}

// resolveContextWindow determines context window: explicit config > model prefix > driver default > fallback.
func resolveContextWindow(cfg config.ProviderConfig) int {
	if cfg.ContextWindow > 0 {
		return cfg.ContextWindow
	}

	best, size := "", 0
	for prefix, s := range defaultContextWindows {
		if strings.HasPrefix(cfg.Model, prefix) && len(prefix) > len(best) {
			best, size = prefix, s
		}
	}
	if best != "" {
		return size
	}

	if cfg.Driver == "ollama" {
		return 8192
	}
	return fallbackContextWindow
}

func providerKind(p config.ProviderConfig) Kind {
	if p.Type == "" {
		return KindChat
	}
	return Kind(strings.ToLower(p.Type))
}
