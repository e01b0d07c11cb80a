package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/arena/internal/config"
	"github.com/dohr-michael/arena/internal/events"
	"github.com/dohr-michael/arena/internal/models"
	"github.com/dohr-michael/arena/internal/sessions"
)

// ClientSource hands out chat clients and their context windows.
type ClientSource interface {
	Client(ctx context.Context, m models.Model) (model.BaseChatModel, error)
	ContextWindow(m models.Model) int
}

// Options configures a Conversation.
type Options struct {
	SystemPrompt string
	Compression  config.CompressionConfig
	Bus          *events.Bus
}

// Conversation is the record of one session. It is the only writer of the
// session's metadata, so message counts, token usage, the active model and
// the summary never overwrite each other.
type Conversation struct {
	mu           sync.Mutex
	store        sessions.Store
	clients      ClientSource
	compressor   *Compressor
	systemPrompt string
	bus          *events.Bus
	id           string
	history      []*schema.Message
}

// Start creates a fresh session bound to m.
func Start(store sessions.Store, clients ClientSource, m models.Model, opts Options) (*Conversation, error) {
	sess, err := store.Create()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c := newConversation(store, clients, sess.ID, opts)
	if !m.IsZero() {
		if err := c.SetModel(m); err != nil {
			return nil, err
		}
	}
	if c.bus != nil {
		c.bus.Publish(events.NewTypedEventWithSession(events.SourceChat,
			events.SessionCreatedPayload{Model: m.ID}, sess.ID))
	}
	slog.Debug("session created", "session_id", sess.ID, "model", m.ID)
	return c, nil
}

// Resume reopens an existing session and loads its messages.
func Resume(store sessions.Store, clients ClientSource, id string, opts Options) (*Conversation, error) {
	if _, err := store.Get(id); err != nil {
		return nil, err
	}
	msgs, err := store.LoadMessages(id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	c := newConversation(store, clients, id, opts)
	for _, m := range msgs {
		c.history = append(c.history, m.ToSchemaMessage())
	}
	return c, nil
}

func newConversation(store sessions.Store, clients ClientSource, id string, opts Options) *Conversation {
	c := &Conversation{
		store:        store,
		clients:      clients,
		systemPrompt: opts.SystemPrompt,
		bus:          opts.Bus,
		id:           id,
	}
	if !opts.Compression.Disabled {
		c.compressor = NewCompressor(CompressorConfig{
			Threshold:     opts.Compression.Threshold,
			PreserveRatio: opts.Compression.PreserveRatio,
		})
	}
	return c
}

// SessionID returns the id of the underlying session.
func (c *Conversation) SessionID() string { return c.id }

// Session returns a fresh copy of the session metadata.
func (c *Conversation) Session() (*sessions.Session, error) {
	return c.store.Get(c.id)
}

// Len returns the number of committed messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// NewInput snapshots the conversation into a request for m.
func (c *Conversation) NewInput(text string, m models.Model) (Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := c.history
	if c.compressor != nil {
		sess, err := c.store.Get(c.id)
		if err != nil {
			return Input{}, err
		}
		history = c.compressor.View(sess, history)
	}
	in := Input{
		Text:         text,
		Model:        m,
		SystemPrompt: c.systemPrompt,
		History:      history,
	}
	return in.Clone(), nil
}

// Commit records the request and the reply produced by by, then compacts
// the history if it outgrew the model's context window. A compaction
// failure is logged; the turn stays committed.
func (c *Conversation) Commit(ctx context.Context, in Input, reply string, by models.Model) error {
	user := sessions.NewMessageFromSchema(schema.UserMessage(in.Text))
	assistant := sessions.NewMessageFromSchema(schema.AssistantMessage(reply, nil))
	assistant.Model = by.ID

	c.mu.Lock()
	if err := c.store.AppendMessages(c.id, user, assistant); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("append messages: %w", err)
	}
	c.history = append(c.history, user.ToSchemaMessage(), assistant.ToSchemaMessage())
	history := c.history
	c.mu.Unlock()

	if c.compressor == nil || c.clients == nil {
		return nil
	}
	if err := c.compact(ctx, history, by); err != nil {
		slog.Warn("history compaction failed", "session_id", c.id, "model", by.ID, "error", err)
	}
	return nil
}

func (c *Conversation) compact(ctx context.Context, history []*schema.Message, by models.Model) error {
	sess, err := c.store.Get(c.id)
	if err != nil {
		return err
	}
	summarize := func(ctx context.Context, prompt string) (string, error) {
		client, err := c.clients.Client(ctx, by)
		if err != nil {
			return "", err
		}
		reply, err := Generate(ctx, client, Input{Text: prompt, Model: by}, c.bus)
		if err != nil {
			return "", err
		}
		return reply.Content, nil
	}

	summary, upTo, ok, err := c.compressor.Compact(ctx, sess, history, c.clients.ContextWindow(by), summarize)
	if err != nil || !ok {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutate(func(s *sessions.Session) {
		s.Summary = summary
		s.SummaryUpTo = upTo
	})
}

// SetModel rebinds the session to m.
func (c *Conversation) SetModel(m models.Model) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutate(func(s *sessions.Session) { s.Model = m.ID })
}

// RecordUsage adds token counts to the session. Usage for other sessions
// is ignored.
func (c *Conversation) RecordUsage(sessionID string, input, output int) error {
	if sessionID != c.id {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutate(func(s *sessions.Session) {
		s.TokenUsage.Input += input
		s.TokenUsage.Output += output
	})
}

// Close marks the session closed.
func (c *Conversation) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Close(c.id)
}

// mutate applies fn to the stored metadata. Callers hold c.mu.
func (c *Conversation) mutate(fn func(*sessions.Session)) error {
	sess, err := c.store.Get(c.id)
	if err != nil {
		return err
	}
	fn(sess)
	sess.UpdatedAt = time.Now()
	if err := c.store.UpdateMeta(sess); err != nil {
		return fmt.Errorf("update session %s: %w", c.id, err)
	}
	return nil
}
