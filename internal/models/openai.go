package models

import (
	"context"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/arena/internal/config"
)

// NewOpenAI creates an OpenAI (or OpenAI-compatible) chat model.
func NewOpenAI(ctx context.Context, cfg config.ProviderConfig, apiKey string) (model.BaseChatModel, error) {
	return newOpenAICompatible(ctx, cfg, apiKey, cfg.Model, cfg.BaseURL, 60*time.Second)
}

func newOpenAICompatible(ctx context.Context, cfg config.ProviderConfig, apiKey, modelName, baseURL string, timeout time.Duration) (model.BaseChatModel, error) {
	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:  apiKey,
		Model:   modelName,
		BaseURL: baseURL,
		Timeout: timeout,
	}

	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxCompletionTokens = &maxTokens
	}
	if cfg.Timeout.Duration() > 0 {
		modelConfig.Timeout = cfg.Timeout.Duration()
	}
	if temp, ok := floatOption(cfg, "temperature"); ok {
		modelConfig.Temperature = &temp
	}
	if topP, ok := floatOption(cfg, "top_p"); ok {
		modelConfig.TopP = &topP
	}

	cm, err := einoopenai.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, err
	}
	return cm, nil
}
