package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/arena/internal/config"
	"github.com/dohr-michael/arena/internal/secrets"
)

// CreateFunc builds a chat model for a bound provider config.
type CreateFunc func(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error)

// NewFactory returns the CreateFunc used by the registry by default.
func NewFactory(keyring *secrets.Keyring) CreateFunc {
	return func(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
		return CreateModel(ctx, cfg, keyring)
	}
}

// CreateModel creates a chat model from a provider config.
func CreateModel(ctx context.Context, cfg config.ProviderConfig, keyring *secrets.Keyring) (model.BaseChatModel, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "ollama" {
		return NewOllama(ctx, cfg)
	}

	var build func(context.Context, config.ProviderConfig, string) (model.BaseChatModel, error)
	switch driver {
	case "anthropic":
		build = NewClaude
	case "openai":
		build = NewOpenAI
	case "mistral":
		build = NewMistral
	case "gemini":
		build = NewGemini
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}

	apiKey, err := ResolveAuth(cfg, keyring)
	if err != nil {
		return nil, fmt.Errorf("resolve auth: %w", err)
	}
	return build(ctx, cfg, apiKey)
}
