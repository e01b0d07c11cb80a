// Package chat holds the conversation side of arena: the request value sent
// to models, the call helper that reports to the event bus, and the session
// record that chosen replies are committed to.
package chat

import (
	"slices"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/arena/internal/models"
)

// Input is one user request bound to the model that should answer it.
// It is a value: Clone and WithModel never share the history slice.
type Input struct {
	Text         string
	Model        models.Model
	SystemPrompt string
	History      []*schema.Message // prior turns, summary first when present
}

// IsEmpty reports whether the request has no visible text.
func (in Input) IsEmpty() bool {
	return strings.TrimSpace(in.Text) == ""
}

// Clone returns a copy whose history can be mutated independently.
func (in Input) Clone() Input {
	out := in
	out.History = slices.Clone(in.History)
	return out
}

// WithModel returns a clone bound to m.
func (in Input) WithModel(m models.Model) Input {
	out := in.Clone()
	out.Model = m
	return out
}

// Messages assembles the full prompt: system prompt, history, then the
// user request.
func (in Input) Messages() []*schema.Message {
	msgs := make([]*schema.Message, 0, len(in.History)+2)
	if in.SystemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(in.SystemPrompt))
	}
	msgs = append(msgs, in.History...)
	msgs = append(msgs, schema.UserMessage(in.Text))
	return msgs
}
