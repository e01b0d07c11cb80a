package events

import "context"

type (
	sessionIDKey struct{}
	roundKey     struct{}
)

// ContextWithSessionID returns a new context carrying the session ID.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext extracts the session ID from the context, or "" if absent.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ContextWithRound tags ctx with the dispatch round it belongs to.
func ContextWithRound(ctx context.Context, round uint64) context.Context {
	return context.WithValue(ctx, roundKey{}, round)
}

// RoundFromContext returns the dispatch round, or 0 outside of a round.
func RoundFromContext(ctx context.Context) uint64 {
	if r, ok := ctx.Value(roundKey{}).(uint64); ok {
		return r
	}
	return 0
}
