package models

import (
	"context"
	"sync/atomic"

	"github.com/cloudwego/eino/components/model"
)

// Live is a Registry that can be replaced at runtime, typically after a
// config reload. Calls always go to the current registry.
type Live struct {
	cur atomic.Pointer[Registry]
}

// NewLive wraps r.
func NewLive(r *Registry) *Live {
	l := &Live{}
	l.cur.Store(r)
	return l
}

// Swap installs r. Clients created by the previous registry are dropped
// with it.
func (l *Live) Swap(r *Registry) {
	l.cur.Store(r)
}

// Current returns the registry in use.
func (l *Live) Current() *Registry {
	return l.cur.Load()
}

// Retrieve resolves id against the current registry.
func (l *Live) Retrieve(id string, kind Kind) (Model, error) {
	return l.Current().Retrieve(id, kind)
}

// Default returns the current default chat model.
func (l *Live) Default() (Model, error) {
	return l.Current().Default()
}

// List returns the current models of kind.
func (l *Live) List(kind Kind) []Model {
	return l.Current().List(kind)
}

// Client returns the chat client for m from the current registry.
func (l *Live) Client(ctx context.Context, m Model) (model.BaseChatModel, error) {
	return l.Current().Client(ctx, m)
}

// ContextWindow returns the context window for m.
func (l *Live) ContextWindow(m Model) int {
	return l.Current().ContextWindow(m)
}
