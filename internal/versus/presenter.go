package versus

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dohr-michael/arena/internal/render"
)

// Presenter displays a round as it progresses. Show is called once per
// result, in arrival order, and must not fail.
type Presenter interface {
	Begin()
	Show(r Result)
}

// Renderer formats markdown.
type Renderer interface {
	Render(content string) (string, error)
}

// Console is the terminal Presenter. Answers go to Out, failures to Err.
type Console struct {
	Out      io.Writer
	Err      io.Writer
	Markdown Renderer // nil prints raw text
	Styles   render.Styles
	Width    func() (int, bool) // nil means render.FallbackWidth
}

// Begin announces a round before any answer arrives.
func (c *Console) Begin() {
	fmt.Fprint(c.Out, "Generating... ")
}

// Show prints the header and body of one result.
func (c *Console) Show(r Result) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, c.header(r.Rank, r.ModelID))

	if !r.OK() {
		fmt.Fprintln(c.Err, c.Styles.Error.Render("Error: "+ErrorText(r.Err)))
		return
	}

	body := r.Content
	if c.Markdown != nil {
		if out, err := c.Markdown.Render(body); err == nil {
			body = out
		}
	}
	fmt.Fprintln(c.Out, body)
}

func (c *Console) header(rank int, id string) string {
	width := render.FallbackWidth
	if c.Width != nil {
		if w, ok := c.Width(); ok {
			width = w
		}
	}
	head, rule := Header(rank, id, width)
	return c.Styles.Header.Render(head) + c.Styles.Rule.Render(rule)
}

// Header returns the result header and the rule that pads it to width.
func Header(rank int, id string, width int) (head, rule string) {
	head = fmt.Sprintf("--- [%d] %s ---", rank, id)
	return head, strings.Repeat("-", max(0, width-render.DisplayWidth(head)))
}

// ErrorText formats err for the operator: the message, followed by its
// immediate cause unless the message already ends with it.
func ErrorText(err error) string {
	top := err.Error()
	cause := errors.Unwrap(err)
	if cause == nil {
		return top
	}
	if c := cause.Error(); c != "" && !strings.HasSuffix(top, c) {
		return top + ": " + c
	}
	return top
}
