// Package render turns model output into terminal text: markdown through
// glamour, styles through lipgloss, geometry through x/term.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// Markdown renders markdown to ANSI terminal text.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown builds a renderer for style at the given wrap width.
// style is "auto", "arena", "plain", or any glamour standard style
// ("dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night").
func NewMarkdown(style string, width int) (*Markdown, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	}
	switch style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	case "arena":
		opts = append(opts, glamour.WithStyles(arenaStyle()))
	case "plain":
		opts = append(opts, glamour.WithStandardStyle(styles.NoTTYStyle))
	default:
		if _, ok := styles.DefaultStyles[style]; !ok {
			return nil, fmt.Errorf("unknown markdown style %q", style)
		}
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Markdown{renderer: r}, nil
}

// Render formats content. Trailing newlines added by glamour are trimmed.
func (m *Markdown) Render(content string) (string, error) {
	if content == "" {
		return "", nil
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// arenaStyle is the dark glamour style recoloured to the arena palette.
func arenaStyle() ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	cfg.Document.Margin = uintPtr(0)
	cfg.Heading.Color = stringPtr(ColorPrimary)
	cfg.H1.Color = stringPtr(ColorPrimary)
	cfg.H1.BackgroundColor = nil
	cfg.H2.Color = stringPtr(ColorPrimary)
	cfg.H3.Color = stringPtr(ColorSecondary)
	cfg.Link.Color = stringPtr(ColorAccent)
	cfg.LinkText.Color = stringPtr(ColorAccent)
	cfg.Code.Color = stringPtr(ColorWarning)
	cfg.BlockQuote.Color = stringPtr(ColorMuted)
	return cfg
}

func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }
