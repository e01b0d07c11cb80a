package storage

import (
	"log/slog"

	"github.com/dohr-michael/arena/internal/events"
)

// UsageRecorder accumulates token usage on a session. The conversation owns
// session metadata, so the tracker goes through it instead of the store.
type UsageRecorder interface {
	RecordUsage(sessionID string, input, output int) error
}

// CostTracker subscribes to LLM call events and accumulates token usage per session.
type CostTracker struct {
	bus         *events.Bus
	recorder    UsageRecorder
	unsubscribe func()
}

// NewCostTracker creates a CostTracker that listens for LLM response events.
func NewCostTracker(bus *events.Bus, recorder UsageRecorder) *CostTracker {
	ct := &CostTracker{
		bus:      bus,
		recorder: recorder,
	}
	ct.unsubscribe = bus.Subscribe(ct.handleEvent, events.EventLLMCall)
	return ct
}

// Close unsubscribes the tracker from the event bus.
func (ct *CostTracker) Close() {
	if ct.unsubscribe != nil {
		ct.unsubscribe()
	}
}

func (ct *CostTracker) handleEvent(e events.Event) {
	if e.SessionID == "" {
		return
	}

	payload, ok := events.GetLLMCallPayload(e)
	if !ok {
		return
	}

	if payload.Phase != events.LLMPhaseResponse {
		return
	}

	if payload.TokensInput == 0 && payload.TokensOutput == 0 {
		return
	}

	if err := ct.recorder.RecordUsage(e.SessionID, payload.TokensInput, payload.TokensOutput); err != nil {
		slog.Debug("cost tracker: record usage", "session_id", e.SessionID, "model", payload.Model, "error", err)
	}
}
