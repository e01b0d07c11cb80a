package versus

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/render"
)

// Alpha, Beta and Gamma are submitted in that order; Gamma answers first,
// Alpha times out second, Beta answers last.
func runGammaAlphaBeta(t *testing.T, choice string) (Batch, Result, *fakeRecord, *State, string) {
	t.Helper()

	alpha := newGated("", errors.New("timeout"))
	beta := newGated("b-text", nil)
	gamma := newGated("g-text", nil)

	rec := &fakeRecord{}
	s := NewState(StateConfig{
		Catalog: newCatalog("Alpha", "Beta", "Gamma", "Default"),
		Record:  rec,
		Model:   testModel("Default"),
	})
	if _, err := s.Enter([]string{"Alpha", "Beta", "Gamma"}); err != nil {
		t.Fatal(err)
	}

	p := newRecorder(3)
	d := NewDispatcher(s, &fakeClients{clients: map[string]model.BaseChatModel{
		"Alpha": alpha, "Beta": beta, "Gamma": gamma,
	}}, p, nil)

	in := chat.Input{Text: "compare", Model: s.Model()}
	done := make(chan Batch, 1)
	go func() {
		batch, err := d.Dispatch(context.Background(), in)
		if err != nil {
			t.Errorf("Dispatch: %v", err)
		}
		done <- batch
	}()

	for _, g := range []*gatedModel{gamma, alpha, beta} {
		g.release()
		select {
		case <-p.notify:
		case <-time.After(time.Second):
			t.Fatal("result not shown")
		}
	}
	batch := <-done

	var out bytes.Buffer
	sel := NewSelector(s, strings.NewReader(choice), &out, render.PlainStyles(), nil)
	chosen, err := sel.Select(context.Background(), in, batch)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	return batch, chosen, rec, s, out.String()
}

func TestScenarioBatchFollowsArrival(t *testing.T) {
	batch, _, _, _, menu := runGammaAlphaBeta(t, "1\n")

	want := []struct {
		rank  int
		index int
		id    string
		ok    bool
	}{
		{1, 2, "Gamma", true},
		{2, 0, "Alpha", false},
		{3, 1, "Beta", true},
	}
	if len(batch) != len(want) {
		t.Fatalf("batch = %d results", len(batch))
	}
	for i, w := range want {
		r := batch[i]
		if r.Rank != w.rank || r.Index != w.index || r.ModelID != w.id || r.OK() != w.ok {
			t.Errorf("batch[%d] = rank %d index %d %s ok=%v", i, r.Rank, r.Index, r.ModelID, r.OK())
		}
	}
	if !strings.Contains(batch[1].Err.Error(), "Alpha") || !strings.Contains(ErrorText(batch[1].Err), "timeout") {
		t.Errorf("alpha error = %q", ErrorText(batch[1].Err))
	}
	if !strings.Contains(menu, "  [1] Gamma\n  [3] Beta\n") || strings.Contains(menu, "Alpha") {
		t.Errorf("menu = %q", menu)
	}
}

func TestScenarioSelectionResolvesOriginatingModel(t *testing.T) {
	_, chosen, rec, s, _ := runGammaAlphaBeta(t, "1\n")

	if chosen.ModelID != "Gamma" {
		t.Fatalf("chosen = %s", chosen.ModelID)
	}
	if len(rec.commits) != 1 || rec.commits[0].reply != "g-text" || rec.commits[0].text != "compare" {
		t.Errorf("commits = %+v", rec.commits)
	}
	// The batch position of Gamma is 0, which is Alpha's submission slot.
	// The session must follow the submission index instead.
	if len(rec.models) != 1 || rec.models[0] != "Gamma" {
		t.Errorf("session rebound to %v, want [Gamma]", rec.models)
	}
	if s.Model().ID != "Gamma" {
		t.Errorf("state model = %s", s.Model().ID)
	}
}

func TestScenarioSecondChoiceIsBeta(t *testing.T) {
	_, chosen, rec, _, _ := runGammaAlphaBeta(t, "2\n")
	if chosen.ModelID != "Beta" || rec.commits[0].reply != "b-text" || rec.models[0] != "Beta" {
		t.Errorf("chosen %s, commits %+v, models %v", chosen.ModelID, rec.commits, rec.models)
	}
}
