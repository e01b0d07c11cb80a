package render

import "charm.land/lipgloss/v2"

// Palette.
const (
	ColorPrimary   = "#7C3AED" // violet: headers
	ColorSecondary = "#10B981" // green: success, menu ranks
	ColorAccent    = "#60A5FA" // blue: model ids
	ColorWarning   = "#F59E0B" // amber: prompts
	ColorError     = "#EF4444" // red
	ColorMuted     = "#6B7280" // gray: rules, hints
)

// Styles groups the lipgloss styles used by console output. The zero-styled
// variant returned by PlainStyles renders text unchanged.
type Styles struct {
	Header lipgloss.Style
	Rule   lipgloss.Style
	Error  lipgloss.Style
	Rank   lipgloss.Style
	Model  lipgloss.Style
	Prompt lipgloss.Style
	Muted  lipgloss.Style
}

// NewStyles returns coloured styles, or plain ones when color is false.
func NewStyles(color bool) Styles {
	if !color {
		return PlainStyles()
	}
	return Styles{
		Header: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimary)).Bold(true),
		Rule:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted)),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Bold(true),
		Rank:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondary)).Bold(true),
		Model:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Prompt: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted)),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Header: s, Rule: s, Error: s, Rank: s, Model: s, Prompt: s, Muted: s}
}

// DisplayWidth is the number of terminal cells s occupies, ignoring ANSI
// sequences.
func DisplayWidth(s string) int {
	return lipgloss.Width(s)
}
