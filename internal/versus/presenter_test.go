package versus

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dohr-michael/arena/internal/render"
)

func TestHeaderPadsToWidth(t *testing.T) {
	head, rule := Header(2, "openai", 40)
	if head != "--- [2] openai ---" {
		t.Errorf("head = %q", head)
	}
	if len(head)+len(rule) != 40 {
		t.Errorf("total width = %d, want 40", len(head)+len(rule))
	}
	if strings.Trim(rule, "-") != "" {
		t.Errorf("rule has non-dash characters: %q", rule)
	}
}

func TestHeaderNarrowTerminal(t *testing.T) {
	_, rule := Header(1, "a-very-long-model-identifier", 10)
	if rule != "" {
		t.Errorf("rule should be empty when the header overflows, got %q", rule)
	}
}

func TestConsoleFallbackWidth(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out, Err: &out, Styles: render.PlainStyles(),
		Width: func() (int, bool) { return 0, false }}

	c.Show(Result{Rank: 1, ModelID: "a", Content: "hello"})

	lines := strings.Split(out.String(), "\n")
	if lines[0] != "" {
		t.Errorf("expected a leading blank line, got %q", lines[0])
	}
	if len(lines[1]) != render.FallbackWidth {
		t.Errorf("header width = %d, want %d", len(lines[1]), render.FallbackWidth)
	}
	if lines[2] != "hello" {
		t.Errorf("body = %q", lines[2])
	}
}

func TestConsoleBeginOnce(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out, Styles: render.PlainStyles()}
	c.Begin()
	if out.String() != "Generating... " {
		t.Errorf("Begin wrote %q", out.String())
	}
}

func TestConsoleRendersMarkdown(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out, Err: &out, Markdown: upperRenderer{}, Styles: render.PlainStyles()}
	c.Show(Result{Rank: 1, ModelID: "a", Content: "hello"})
	if !strings.Contains(out.String(), "HELLO") {
		t.Errorf("markdown renderer not used: %q", out.String())
	}
}

func TestConsoleRenderFailureDegrades(t *testing.T) {
	var out bytes.Buffer
	c := &Console{Out: &out, Err: &out, Markdown: failingRenderer{}, Styles: render.PlainStyles()}
	c.Show(Result{Rank: 1, ModelID: "a", Content: "**raw**"})
	if !strings.Contains(out.String(), "**raw**") {
		t.Errorf("expected plain text fallback, got %q", out.String())
	}
}

func TestConsoleFailureGoesToErr(t *testing.T) {
	var out, errw bytes.Buffer
	c := &Console{Out: &out, Err: &errw, Styles: render.PlainStyles()}

	err := &ModelError{Model: "alpha", Op: "generate", Err: errors.New("timeout")}
	c.Show(Result{Rank: 2, ModelID: "alpha", Err: err})

	if got := errw.String(); got != "Error: alpha: generate failed: timeout\n" {
		t.Errorf("stderr = %q", got)
	}
	if !strings.Contains(out.String(), "--- [2] alpha ---") {
		t.Errorf("header missing from stdout: %q", out.String())
	}
	if strings.Contains(out.String(), "Error:") {
		t.Error("errors must not go to stdout")
	}
}

func TestErrorText(t *testing.T) {
	base := errors.New("refused")
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "boom"},
		{"typed with cause", &ModelError{Model: "m", Op: "generate", Err: base}, "m: generate failed: refused"},
		{"wrapped already shows cause", fmt.Errorf("dial: %w", base), "dial: refused"},
		{"typed without cause", &ModelError{Model: "m", Op: "generate"}, "m: generate failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorText(tc.err); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
