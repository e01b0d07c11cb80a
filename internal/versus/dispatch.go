package versus

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/model"
	"golang.org/x/sync/errgroup"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/events"
	"github.com/dohr-michael/arena/internal/models"
)

// ClientFactory creates the chat client for a model.
type ClientFactory interface {
	Client(ctx context.Context, m models.Model) (model.BaseChatModel, error)
}

// Dispatcher fans a request out to every model of the active comparison
// set and gathers the answers in arrival order.
type Dispatcher struct {
	state     *State
	clients   ClientFactory
	presenter Presenter
	bus       *events.Bus
	rounds    atomic.Uint64
}

// NewDispatcher creates a Dispatcher over the comparison set held by state.
func NewDispatcher(state *State, clients ClientFactory, presenter Presenter, bus *events.Bus) *Dispatcher {
	return &Dispatcher{
		state:     state,
		clients:   clients,
		presenter: presenter,
		bus:       bus,
	}
}

type completion struct {
	index int
	model string
	reply chat.Reply
	err   error
}

// Dispatch sends in to every model concurrently. Each answer is ranked and
// shown as soon as it arrives, before the next one is read. The batch
// always holds one result per model; model failures are results, not
// errors. An empty request returns an empty batch without calling anything.
// In-flight calls are never cancelled by the dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, in chat.Input) (Batch, error) {
	if in.IsEmpty() {
		return nil, nil
	}
	mode := d.state.Mode()
	if mode == nil {
		return nil, ErrModeInactive
	}

	round := d.rounds.Add(1)
	if events.SessionIDFromContext(ctx) == "" {
		ctx = events.ContextWithSessionID(ctx, d.state.sessionID())
	}
	ctx = events.ContextWithRound(ctx, round)
	targets := mode.Models()
	start := time.Now()

	d.publish(ctx, events.VsDispatchPayload{Round: round, Models: mode.IDs(), Prompt: in.Text})
	d.presenter.Begin()

	done := make(chan completion, len(targets))
	var g errgroup.Group
	for i, m := range targets {
		req := in.WithModel(m)
		g.Go(func() error {
			done <- d.run(ctx, i, req)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(done)
	}()

	batch := make(Batch, 0, len(targets))
	for c := range done {
		r := Result{
			Rank:     len(batch) + 1,
			Index:    c.index,
			ModelID:  c.model,
			Content:  c.reply.Content,
			Err:      c.err,
			Usage:    c.reply.Usage,
			Duration: c.reply.Duration,
		}
		d.presenter.Show(r)
		d.publishResult(ctx, round, r)
		batch = append(batch, r)
	}

	d.publish(ctx, events.VsAggregatedPayload{
		Round:     round,
		Total:     len(batch),
		Succeeded: len(batch.Successes()),
		Duration:  time.Since(start),
	})
	return batch, nil
}

func (d *Dispatcher) run(ctx context.Context, index int, req chat.Input) completion {
	c := completion{index: index, model: req.Model.ID}

	client, err := d.clients.Client(ctx, req.Model)
	if err != nil {
		c.err = &ModelError{Model: req.Model.ID, Op: "create client", Err: err}
		return c
	}
	reply, err := chat.Generate(ctx, client, req, d.bus)
	if err != nil {
		c.err = &ModelError{Model: req.Model.ID, Op: "generate", Err: err}
		return c
	}
	c.reply = reply
	return c
}

func (d *Dispatcher) publishResult(ctx context.Context, round uint64, r Result) {
	p := events.VsResultPayload{
		Round:    round,
		Rank:     r.Rank,
		Index:    r.Index,
		Model:    r.ModelID,
		Success:  r.OK(),
		Length:   len(r.Content),
		Duration: r.Duration,
	}
	if r.Err != nil {
		p.Error = ErrorText(r.Err)
	}
	d.publish(ctx, p)
}

func (d *Dispatcher) publish(ctx context.Context, p events.EventPayload) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(events.NewTypedEventWithSession(events.SourceDispatcher, p, events.SessionIDFromContext(ctx)))
}
