package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/arena/internal/sessions"
)

const summaryPrefix = "[Previous conversation summary]\n\n"

// SummarizeFunc performs a single non-streaming completion for prompt.
type SummarizeFunc func(ctx context.Context, prompt string) (string, error)

// CompressorConfig tunes when and how much history gets summarized.
// Zero values get defaults.
type CompressorConfig struct {
	Threshold     float64 // fraction of the window that triggers compaction (0.80)
	PreserveRatio float64 // fraction of the window kept verbatim (0.25)
	CharsPerToken int     // estimation heuristic (4)
}

// Compressor keeps a session's prompt inside the model context window by
// folding older turns into a running summary stored on the session.
type Compressor struct {
	threshold     float64
	preserveRatio float64
	charsPerToken int
}

// NewCompressor creates a Compressor, filling zero settings with defaults.
func NewCompressor(cfg CompressorConfig) *Compressor {
	c := &Compressor{
		threshold:     cfg.Threshold,
		preserveRatio: cfg.PreserveRatio,
		charsPerToken: cfg.CharsPerToken,
	}
	if c.threshold <= 0 {
		c.threshold = 0.80
	}
	if c.preserveRatio <= 0 {
		c.preserveRatio = 0.25
	}
	if c.charsPerToken <= 0 {
		c.charsPerToken = 4
	}
	return c
}

func (c *Compressor) tokens(msg *schema.Message) int {
	// ~4 tokens of role/formatting overhead per message.
	return len(msg.Content)/c.charsPerToken + 4
}

// EstimateTokens returns a heuristic token count for messages.
func (c *Compressor) EstimateTokens(messages []*schema.Message) int {
	total := 0
	for _, msg := range messages {
		total += c.tokens(msg)
	}
	return total
}

// Over reports whether messages exceed the threshold of window.
func (c *Compressor) Over(window int, messages []*schema.Message) bool {
	if window <= 0 {
		return false
	}
	return c.EstimateTokens(messages) > int(float64(window)*c.threshold)
}

// View returns the history as sent to a model: the stored summary, if any,
// followed by the turns it does not cover.
func (c *Compressor) View(sess *sessions.Session, history []*schema.Message) []*schema.Message {
	if sess == nil || sess.Summary == "" {
		return history
	}
	rest := history
	if sess.SummaryUpTo > 0 && sess.SummaryUpTo <= len(history) {
		rest = history[sess.SummaryUpTo:]
	}
	out := make([]*schema.Message, 0, len(rest)+1)
	out = append(out, schema.UserMessage(summaryPrefix+sess.Summary))
	return append(out, rest...)
}

// Compact summarizes the oldest uncovered turns of history when the view
// no longer fits window. It returns the new summary and the absolute index
// it covers up to; ok is false when nothing was compacted.
func (c *Compressor) Compact(
	ctx context.Context,
	sess *sessions.Session,
	history []*schema.Message,
	window int,
	summarize SummarizeFunc,
) (summary string, upTo int, ok bool, err error) {
	view := c.View(sess, history)
	if !c.Over(window, view) {
		return "", 0, false, nil
	}

	offset := 0
	if sess != nil && sess.Summary != "" {
		offset = sess.SummaryUpTo
	}
	uncovered := history[min(offset, len(history)):]
	split := c.splitIndex(uncovered, int(float64(window)*c.preserveRatio))
	if split == 0 {
		return "", 0, false, nil
	}

	slog.Info("context compression triggered",
		"messages", len(uncovered),
		"estimated_tokens", c.EstimateTokens(view),
		"context_window", window,
	)

	summary, err = summarize(ctx, c.prompt(sess, uncovered[:split]))
	if err != nil {
		return "", 0, false, fmt.Errorf("summarize history: %w", err)
	}

	slog.Info("context compression complete",
		"summarized", split,
		"preserved", len(uncovered)-split,
		"summary_length", len(summary),
	)
	return summary, offset + split, true, nil
}

// splitIndex returns how many leading messages to fold. The newest
// messages that fit budget are kept, always at least one.
func (c *Compressor) splitIndex(messages []*schema.Message, budget int) int {
	if len(messages) <= 1 {
		return 0
	}
	used := 0
	for i := len(messages) - 1; i >= 0; i-- {
		t := c.tokens(messages[i])
		if used+t > budget && i < len(messages)-1 {
			return i + 1
		}
		used += t
	}
	// Everything fits the preserve budget; fold the older half anyway.
	return len(messages) / 2
}

func (c *Compressor) prompt(sess *sessions.Session, old []*schema.Message) string {
	var sb strings.Builder
	sb.WriteString("You are summarizing a conversation between a user and one or more AI assistants.\n\n")

	cumulative := sess != nil && sess.Summary != ""
	if cumulative {
		sb.WriteString("## Previous Summary\n\n")
		sb.WriteString(sess.Summary)
		sb.WriteString("\n\n## New Messages to Incorporate\n\n")
	} else {
		sb.WriteString("## Messages\n\n")
	}
	for _, msg := range old {
		fmt.Fprintf(&sb, "[%s]: %s\n\n", msg.Role, msg.Content)
	}

	sb.WriteString("## Instructions\n\n")
	if cumulative {
		sb.WriteString("Write one summary covering both the previous summary and the new messages.\n")
	} else {
		sb.WriteString("Summarize the conversation above.\n")
	}
	sb.WriteString("Answer in the conversation's language. Keep decisions, facts and open questions. Stay under 2000 words.\n")
	return sb.String()
}
