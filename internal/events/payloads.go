package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// VS MODE EVENTS
// =============================================================================

type VsEnteredPayload struct {
	Models []string `json:"models"`
}

func (VsEnteredPayload) EventType() EventType { return EventVsEntered }

type VsExitedPayload struct {
	Models []string `json:"models,omitempty"`
}

func (VsExitedPayload) EventType() EventType { return EventVsExited }

// VsDispatchPayload is published once per round, before any model is called.
type VsDispatchPayload struct {
	Round  uint64   `json:"round"`
	Models []string `json:"models"`
	Prompt string   `json:"prompt"`
}

func (VsDispatchPayload) EventType() EventType { return EventVsDispatch }

// VsResultPayload is published when a single model outcome is ranked.
type VsResultPayload struct {
	Round    uint64        `json:"round"`
	Rank     int           `json:"rank"`
	Index    int           `json:"index"`
	Model    string        `json:"model"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Length   int           `json:"length,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (VsResultPayload) EventType() EventType { return EventVsResult }

// VsAggregatedPayload closes a round.
type VsAggregatedPayload struct {
	Round     uint64        `json:"round"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Duration  time.Duration `json:"duration,omitempty"`
}

func (VsAggregatedPayload) EventType() EventType { return EventVsAggregated }

type VsSelectedPayload struct {
	Rank  int    `json:"rank"`
	Index int    `json:"index"`
	Model string `json:"model"`
}

func (VsSelectedPayload) EventType() EventType { return EventVsSelected }

// =============================================================================
// CONVERSATION EVENTS
// =============================================================================

type AssistantMessagePayload struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

func (AssistantMessagePayload) EventType() EventType { return EventAssistantMessage }

type SessionCreatedPayload struct {
	Model string `json:"model,omitempty"`
}

func (SessionCreatedPayload) EventType() EventType { return EventSessionCreated }

type ConfigReloadedPayload struct {
	Path      string `json:"path"`
	Providers int    `json:"providers"`
}

func (ConfigReloadedPayload) EventType() EventType { return EventConfigReloaded }

// =============================================================================
// INTERNAL EVENTS
// =============================================================================

// LLM call phases.
const (
	LLMPhaseRequest  = "request"
	LLMPhaseResponse = "response"
	LLMPhaseError    = "error"
)

type LLMCallPayload struct {
	Phase        string        `json:"phase"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider,omitempty"`
	MessageCount int           `json:"message_count,omitempty"`
	TokensInput  int           `json:"tokens_input,omitempty"`
	TokensOutput int           `json:"tokens_output,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func (LLMCallPayload) EventType() EventType { return EventLLMCall }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return NewEvent(payload.EventType(), source, toMap(payload))
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	return NewEventWithSession(payload.EventType(), source, toMap(payload), sessionID)
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

// ExtractPayload decodes e.Payload into T. It fails when the event type
// does not match T.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if result.EventType() != e.Type {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetLLMCallPayload(e Event) (LLMCallPayload, bool) {
	return ExtractPayload[LLMCallPayload](e)
}

func GetVsResultPayload(e Event) (VsResultPayload, bool) {
	return ExtractPayload[VsResultPayload](e)
}
