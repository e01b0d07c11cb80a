package versus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/events"
	"github.com/dohr-michael/arena/internal/models"
	"github.com/dohr-michael/arena/internal/render"
)

// Selector asks the operator which answer of a round to keep.
type Selector struct {
	state  *State
	in     *bufio.Reader
	out    io.Writer
	styles render.Styles
	bus    *events.Bus
}

// NewSelector reads choices from in. Pass the REPL's own *bufio.Reader so
// buffered input is not lost between the two.
func NewSelector(state *State, in io.Reader, out io.Writer, styles render.Styles, bus *events.Bus) *Selector {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &Selector{state: state, in: br, out: out, styles: styles, bus: bus}
}

// Select lists the successful results of batch, reads a choice and commits
// it. Typing exit or quit returns ErrSelectionAborted without committing.
func (s *Selector) Select(ctx context.Context, in chat.Input, batch Batch) (Result, error) {
	fmt.Fprintln(s.out)

	menu := batch.Successes()
	for _, r := range menu {
		fmt.Fprintf(s.out, "  %s %s\n", s.styles.Rank.Render(fmt.Sprintf("[%d]", r.Rank)), s.styles.Model.Render(r.ModelID))
	}
	if len(menu) == 0 {
		return Result{}, ErrNoSelectableResults
	}

	fmt.Fprint(s.out, s.styles.Prompt.Render(fmt.Sprintf("Select response [1-%d] (or 'exit' to quit): ", len(menu))))
	line, err := s.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return Result{}, fmt.Errorf("read selection: %w", err)
		}
		// Closed input reads as exit.
		if strings.TrimSpace(line) == "" {
			return Result{}, ErrSelectionAborted
		}
	}

	choice := strings.TrimSpace(line)
	if strings.EqualFold(choice, "exit") || strings.EqualFold(choice, "quit") {
		return Result{}, ErrSelectionAborted
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(menu) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidSelection, choice)
	}

	return s.Choose(ctx, in, batch, menu[n-1].Rank)
}

// Choose commits the result with the given rank and rebinds the session to
// the model that produced it. Choosing a failed result does nothing.
func (s *Selector) Choose(ctx context.Context, in chat.Input, batch Batch, rank int) (Result, error) {
	r, ok := batch.ByRank(rank)
	if !ok {
		return Result{}, fmt.Errorf("%w: no result ranked %d", ErrInvalidSelection, rank)
	}
	if !r.OK() {
		return r, nil
	}

	m := s.origin(r)
	if err := s.state.Commit(ctx, in, r.Content, m); err != nil {
		return r, fmt.Errorf("commit selection: %w", err)
	}
	if err := s.state.SetModel(m); err != nil {
		return r, fmt.Errorf("rebind session model: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(events.NewTypedEventWithSession(events.SourceSelector,
			events.VsSelectedPayload{Rank: r.Rank, Index: r.Index, Model: m.ID},
			s.state.sessionID()))
	}
	return r, nil
}

// origin maps a result back to the model submitted at its index, falling
// back to the session model when the set no longer holds that model there.
func (s *Selector) origin(r Result) models.Model {
	if m, ok := s.state.Mode().At(r.Index); ok && m.ID == r.ModelID {
		return m
	}
	return s.state.Model()
}
