// Package versus runs one request against several models at once, shows the
// answers as they arrive, and lets the operator keep one of them.
package versus

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/events"
	"github.com/dohr-michael/arena/internal/models"
)

// Catalog resolves model identifiers.
type Catalog interface {
	Retrieve(id string, kind models.Kind) (models.Model, error)
}

// Record is the conversation a selected reply is committed to.
type Record interface {
	Commit(ctx context.Context, in chat.Input, reply string, by models.Model) error
	SetModel(m models.Model) error
}

// Mode is an active comparison set: at least two models in submission
// order. It is immutable once built.
type Mode struct {
	models []models.Model
}

// Len returns the number of models in the set.
func (m *Mode) Len() int { return len(m.models) }

// Models returns a copy of the set in submission order.
func (m *Mode) Models() []models.Model { return slices.Clone(m.models) }

// At returns the model submitted at index i.
func (m *Mode) At(i int) (models.Model, bool) {
	if m == nil || i < 0 || i >= len(m.models) {
		return models.Model{}, false
	}
	return m.models[i], true
}

// IDs returns the model identifiers in submission order.
func (m *Mode) IDs() []string {
	ids := make([]string, len(m.models))
	for i, mod := range m.models {
		ids[i] = mod.ID
	}
	return ids
}

// StateConfig wires a State.
type StateConfig struct {
	Catalog Catalog
	Record  Record
	Model   models.Model // active session model
	Out     io.Writer    // operator messages; nil discards
	Bus     *events.Bus
}

// State is the per-session VS mode state: the comparison set, the active
// model and the conversation record, guarded by one RWMutex. The lock is
// held for mutations only, never across model or storage calls.
type State struct {
	mu      sync.RWMutex
	catalog Catalog
	record  Record
	mode    *Mode
	model   models.Model
	out     io.Writer
	bus     *events.Bus
}

// NewState creates a State with no active comparison set.
func NewState(cfg StateConfig) *State {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &State{
		catalog: cfg.Catalog,
		record:  cfg.Record,
		model:   cfg.Model,
		out:     out,
		bus:     cfg.Bus,
	}
}

// ParseModelList splits "a, b,c" into trimmed identifiers.
func ParseModelList(s string) []string {
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, strings.TrimSpace(p))
	}
	return ids
}

// Enter resolves ids and makes them the active comparison set, replacing
// any previous one. Nothing changes on error.
func (s *State) Enter(ids []string) (*Mode, error) {
	if len(ids) < 2 {
		return nil, ErrInvalidArity
	}
	resolved := make([]models.Model, 0, len(ids))
	for _, id := range ids {
		m, err := s.catalog.Retrieve(id, models.KindChat)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, m)
	}
	mode := &Mode{models: resolved}

	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()

	fmt.Fprintf(s.out, "VS mode initialized with %d models\n", len(ids))
	s.publish(events.VsEnteredPayload{Models: mode.IDs()})
	return mode, nil
}

// Exit clears the comparison set. Exiting an inactive mode is a no-op.
func (s *State) Exit() {
	s.mu.Lock()
	prev := s.mode
	s.mode = nil
	s.mu.Unlock()

	if prev != nil {
		s.publish(events.VsExitedPayload{Models: prev.IDs()})
	}
}

// Mode returns the active comparison set, or nil.
func (s *State) Mode() *Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Active reports whether a comparison set is active.
func (s *State) Active() bool {
	return s.Mode() != nil
}

// Model returns the active session model.
func (s *State) Model() models.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel rebinds the session to m.
func (s *State) SetModel(m models.Model) error {
	if s.record != nil {
		if err := s.record.SetModel(m); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
	return nil
}

// Commit records reply, produced by by, as the answer to in.
func (s *State) Commit(ctx context.Context, in chat.Input, reply string, by models.Model) error {
	if s.record == nil {
		return nil
	}
	return s.record.Commit(ctx, in, reply, by)
}

// sessionID returns the session tagged on published events.
func (s *State) sessionID() string {
	if r, ok := s.record.(interface{ SessionID() string }); ok {
		return r.SessionID()
	}
	return ""
}

func (s *State) publish(p events.EventPayload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewTypedEventWithSession(events.SourceRepl, p, s.sessionID()))
}
