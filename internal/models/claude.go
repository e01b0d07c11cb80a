package models

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/arena/internal/config"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-6"
	defaultClaudeMaxTokens = 4096
)

// NewClaude creates an Anthropic chat model.
func NewClaude(ctx context.Context, cfg config.ProviderConfig, apiKey string) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultClaudeModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	modelConfig := &claude.Config{
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: maxTokens,
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		modelConfig.BaseURL = &baseURL
	}
	if temp, ok := floatOption(cfg, "temperature"); ok {
		modelConfig.Temperature = &temp
	}
	if topP, ok := floatOption(cfg, "top_p"); ok {
		modelConfig.TopP = &topP
	}

	cm, err := claude.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, err
	}
	return cm, nil
}

// floatOption reads a numeric provider option as float32.
func floatOption(cfg config.ProviderConfig, key string) (float32, bool) {
	if cfg.Options == nil {
		return 0, false
	}
	switch v := cfg.Options[key].(type) {
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	}
	return 0, false
}
