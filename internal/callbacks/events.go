// Package callbacks provides Eino callback handlers that bridge to the event bus.
package callbacks

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	ub "github.com/cloudwego/eino/utils/callbacks"

	"github.com/dohr-michael/arena/internal/events"
)

// maxErrorLen bounds provider error bodies copied into events.
const maxErrorLen = 1000

type startKey struct{}

// NewEventBusHandler creates a chat model callback handler that publishes
// LLM call events to the bus. RunInfo.Name is reported as the model id and
// RunInfo.Type as the provider.
func NewEventBusHandler(bus *events.Bus, source events.EventSource) callbacks.Handler {
	if source == "" {
		source = events.SourceChat
	}

	publishTyped := func(ctx context.Context, payload events.EventPayload) {
		if sid := events.SessionIDFromContext(ctx); sid != "" {
			bus.Publish(events.NewTypedEventWithSession(source, payload, sid))
		} else {
			bus.Publish(events.NewTypedEvent(source, payload))
		}
	}

	modelHandler := &ub.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *callbacks.RunInfo, input *model.CallbackInput) context.Context {
			publishTyped(ctx, events.LLMCallPayload{
				Phase:        events.LLMPhaseRequest,
				Model:        info.Name,
				Provider:     info.Type,
				MessageCount: len(input.Messages),
			})
			return context.WithValue(ctx, startKey{}, time.Now())
		},

		OnEnd: func(ctx context.Context, info *callbacks.RunInfo, output *model.CallbackOutput) context.Context {
			payload := events.LLMCallPayload{
				Phase:    events.LLMPhaseResponse,
				Model:    info.Name,
				Provider: info.Type,
				Duration: elapsed(ctx),
			}
			switch {
			case output.TokenUsage != nil:
				payload.TokensInput = output.TokenUsage.PromptTokens
				payload.TokensOutput = output.TokenUsage.CompletionTokens
			case output.Message != nil && output.Message.ResponseMeta != nil && output.Message.ResponseMeta.Usage != nil:
				payload.TokensInput = output.Message.ResponseMeta.Usage.PromptTokens
				payload.TokensOutput = output.Message.ResponseMeta.Usage.CompletionTokens
			}
			publishTyped(ctx, payload)
			return ctx
		},

		OnError: func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			publishTyped(ctx, events.LLMCallPayload{
				Phase:    events.LLMPhaseError,
				Model:    info.Name,
				Provider: info.Type,
				Duration: elapsed(ctx),
				Error:    truncatePayload(err.Error(), maxErrorLen),
			})
			return ctx
		},
	}

	return ub.NewHandlerHelper().
		ChatModel(modelHandler).
		Handler()
}

func elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}

func truncatePayload(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
