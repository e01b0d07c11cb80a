// Package sessions persists conversations: session metadata plus an
// append-only message log.
package sessions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// TokenUsage tracks cumulative token consumption for a session.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Session holds metadata about a conversation session.
type Session struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Status       SessionStatus     `json:"status"`
	Model        string            `json:"model,omitempty"` // active model id
	MessageCount int               `json:"message_count"`
	TokenUsage   TokenUsage        `json:"token_usage"`
	Summary      string            `json:"summary,omitempty"`       // compressed context from older messages
	SummaryUpTo  int               `json:"summary_up_to,omitempty"` // index (exclusive) of last summarized message
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Message is a single turn in a conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Model   string    `json:"model,omitempty"` // model that produced an assistant message
	Ts      time.Time `json:"ts"`
}

// ToSchemaMessage converts a session Message to an eino schema.Message.
func (m Message) ToSchemaMessage() *schema.Message {
	return &schema.Message{
		Role:    schema.RoleType(m.Role),
		Content: m.Content,
	}
}

// NewMessageFromSchema converts an eino schema.Message to a session Message.
func NewMessageFromSchema(msg *schema.Message) Message {
	return Message{
		Role:    string(msg.Role),
		Content: msg.Content,
		Ts:      time.Now(),
	}
}

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Store defines the persistence interface for sessions.
type Store interface {
	Create() (*Session, error)
	Get(id string) (*Session, error)
	List() ([]*Session, error)
	UpdateMeta(s *Session) error
	Close(id string) error
	AppendMessages(sessionID string, msgs ...Message) error
	LoadMessages(sessionID string) ([]Message, error)
}

// Open returns the store for driver ("file" or "sqlite") rooted at dir.
func Open(driver, dir string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "file":
		return NewFileStore(dir), nil
	case "sqlite":
		return OpenSQLiteStore(dir)
	default:
		return nil, fmt.Errorf("unknown sessions driver %q", driver)
	}
}

func newSession() *Session {
	now := time.Now()
	u := uuid.New().String()
	return &Session{
		ID:        "sess_" + strings.ReplaceAll(u[:8], "-", ""),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    SessionActive,
	}
}

// titleFrom derives a session title from the first user message.
func titleFrom(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if r := []rune(title); len(r) > 60 {
		title = string(r[:57]) + "..."
	}
	return title
}
