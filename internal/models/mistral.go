package models

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/arena/internal/config"
)

const (
	defaultMistralBaseURL = "https://api.mistral.ai/v1"
	defaultMistralModel   = "mistral-small-latest"
)

// NewMistral creates a Mistral AI chat model via the OpenAI-compatible API.
func NewMistral(ctx context.Context, cfg config.ProviderConfig, apiKey string) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultMistralModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	return newOpenAICompatible(ctx, cfg, apiKey, modelName, baseURL, 5*time.Minute)
}
