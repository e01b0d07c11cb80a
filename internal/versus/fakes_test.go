package versus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/models"
)

func testModel(id string) models.Model {
	provider, name := models.SplitID(id)
	return models.Model{ID: id, Provider: provider, Name: name}
}

type fakeCatalog map[string]models.Model

func newCatalog(ids ...string) fakeCatalog {
	c := fakeCatalog{}
	for _, id := range ids {
		c[id] = testModel(id)
	}
	return c
}

func (c fakeCatalog) Retrieve(id string, kind models.Kind) (models.Model, error) {
	m, ok := c[id]
	if !ok || kind != models.KindChat {
		return models.Model{}, fmt.Errorf("%w: %q", models.ErrUnknownModel, id)
	}
	return m, nil
}

// gatedModel answers once its gate is closed.
type gatedModel struct {
	gate  chan struct{}
	reply string
	err   error

	mu    sync.Mutex
	calls int
	last  []*schema.Message
}

func newGated(reply string, err error) *gatedModel {
	return &gatedModel{gate: make(chan struct{}), reply: reply, err: err}
}

func (g *gatedModel) release() { close(g.gate) }

func (g *gatedModel) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	g.mu.Lock()
	g.calls++
	g.last = in
	g.mu.Unlock()

	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return schema.AssistantMessage(g.reply, nil), nil
}

func (g *gatedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (g *gatedModel) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeClients struct {
	mu      sync.Mutex
	clients map[string]model.BaseChatModel
	created []string
}

func (f *fakeClients) Client(_ context.Context, m models.Model) (model.BaseChatModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, m.ID)
	c, ok := f.clients[m.ID]
	if !ok {
		return nil, errors.New("no credentials configured")
	}
	return c, nil
}

func (f *fakeClients) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// recordingPresenter captures the display sequence and signals each Show.
type recordingPresenter struct {
	mu     sync.Mutex
	begins int
	shown  []Result
	notify chan Result
}

func newRecorder(n int) *recordingPresenter {
	return &recordingPresenter{notify: make(chan Result, n)}
}

func (p *recordingPresenter) Begin() {
	p.mu.Lock()
	p.begins++
	p.mu.Unlock()
}

func (p *recordingPresenter) Show(r Result) {
	p.mu.Lock()
	p.shown = append(p.shown, r)
	p.mu.Unlock()
	p.notify <- r
}

type commit struct {
	text  string
	reply string
	by    string
}

type fakeRecord struct {
	mu      sync.Mutex
	commits []commit
	models  []string
	err     error
}

func (r *fakeRecord) Commit(_ context.Context, in chat.Input, reply string, by models.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.commits = append(r.commits, commit{text: in.Text, reply: reply, by: by.ID})
	return nil
}

func (r *fakeRecord) SetModel(m models.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = append(r.models, m.ID)
	return nil
}

func (r *fakeRecord) SessionID() string { return "sess_test" }

type failingRenderer struct{}

func (failingRenderer) Render(string) (string, error) { return "", errors.New("render failed") }

type upperRenderer struct{}

func (upperRenderer) Render(s string) (string, error) { return strings.ToUpper(s), nil }
