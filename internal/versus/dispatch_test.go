package versus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/arena/internal/chat"
	"github.com/dohr-michael/arena/internal/events"
)

func setup(t *testing.T, clients map[string]model.BaseChatModel, ids ...string) (*State, *Dispatcher, *recordingPresenter, *fakeClients) {
	t.Helper()
	s := NewState(StateConfig{Catalog: newCatalog(ids...), Record: &fakeRecord{}, Model: testModel(ids[0])})
	if len(ids) >= 2 {
		if _, err := s.Enter(ids); err != nil {
			t.Fatalf("Enter: %v", err)
		}
	}
	fc := &fakeClients{clients: clients}
	p := newRecorder(len(ids))
	return s, NewDispatcher(s, fc, p, nil), p, fc
}

func released(replies map[string]string) map[string]model.BaseChatModel {
	out := map[string]model.BaseChatModel{}
	for id, reply := range replies {
		g := newGated(reply, nil)
		g.release()
		out[id] = g
	}
	return out
}

func TestDispatchEmptyRequest(t *testing.T) {
	_, d, p, fc := setup(t, released(map[string]string{"a": "x", "b": "y"}), "a", "b")

	for _, text := range []string{"", "  \n"} {
		batch, err := d.Dispatch(context.Background(), chat.Input{Text: text})
		if err != nil || len(batch) != 0 {
			t.Errorf("Dispatch(%q) = %v, %v", text, batch, err)
		}
	}
	if fc.createdCount() != 0 || p.begins != 0 {
		t.Errorf("empty request reached models: clients=%d begins=%d", fc.createdCount(), p.begins)
	}
}

func TestDispatchModeInactive(t *testing.T) {
	s, d, _, _ := setup(t, nil, "a", "b")
	s.Exit()

	_, err := d.Dispatch(context.Background(), chat.Input{Text: "hi"})
	if !errors.Is(err, ErrModeInactive) {
		t.Errorf("expected ErrModeInactive, got %v", err)
	}
}

func TestDispatchAllSucceed(t *testing.T) {
	_, d, p, _ := setup(t, released(map[string]string{"a": "A", "b": "B", "c": "C"}), "a", "b", "c")

	batch, err := d.Dispatch(context.Background(), chat.Input{Text: "hi"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	seen := map[int]bool{}
	for i, r := range batch {
		if r.Rank != i+1 {
			t.Errorf("batch[%d].Rank = %d", i, r.Rank)
		}
		if seen[r.Index] {
			t.Errorf("duplicate submission index %d", r.Index)
		}
		seen[r.Index] = true
		want := map[string]string{"a": "A", "b": "B", "c": "C"}[r.ModelID]
		if r.Content != want {
			t.Errorf("%s content = %q, want %q", r.ModelID, r.Content, want)
		}
	}
	if p.begins != 1 {
		t.Errorf("Begin called %d times, want 1", p.begins)
	}
	if len(p.shown) != 3 {
		t.Errorf("shown %d results", len(p.shown))
	}
}

func TestDispatchFailuresAreIsolated(t *testing.T) {
	boom := errors.New("upstream exploded")
	failing := newGated("", boom)
	failing.release()
	ok := newGated("fine", nil)
	ok.release()

	// "c" has no client at all.
	_, d, _, _ := setup(t, map[string]model.BaseChatModel{"a": failing, "b": ok}, "a", "b", "c")

	batch, err := d.Dispatch(context.Background(), chat.Input{Text: "hi"})
	if err != nil {
		t.Fatalf("model failures must not fail the round: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}
	if got := len(batch.Successes()); got != 1 {
		t.Errorf("successes = %d, want 1", got)
	}

	for _, r := range batch {
		var me *ModelError
		switch r.ModelID {
		case "a":
			if !errors.As(r.Err, &me) || me.Op != "generate" || !errors.Is(r.Err, boom) {
				t.Errorf("a: unexpected error %v", r.Err)
			}
		case "c":
			if !errors.As(r.Err, &me) || me.Op != "create client" {
				t.Errorf("c: unexpected error %v", r.Err)
			}
		case "b":
			if !r.OK() {
				t.Errorf("b failed: %v", r.Err)
			}
		}
	}
}

func TestDispatchRebindsEachClone(t *testing.T) {
	a, b := newGated("A", nil), newGated("B", nil)
	a.release()
	b.release()
	_, d, _, _ := setup(t, map[string]model.BaseChatModel{"a": a, "b": b}, "a", "b")

	in := chat.Input{Text: "hi", Model: testModel("session")}
	if _, err := d.Dispatch(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if in.Model.ID != "session" {
		t.Errorf("original request rebound to %q", in.Model.ID)
	}
	if a.callCount() != 1 || b.callCount() != 1 {
		t.Errorf("calls a=%d b=%d", a.callCount(), b.callCount())
	}
}

func TestDispatchRunsConcurrently(t *testing.T) {
	a, b := newGated("A", nil), newGated("B", nil)
	_, d, p, _ := setup(t, map[string]model.BaseChatModel{"a": a, "b": b}, "a", "b")

	done := make(chan Batch)
	go func() {
		batch, _ := d.Dispatch(context.Background(), chat.Input{Text: "hi"})
		done <- batch
	}()

	// Both calls must be in flight before either is released.
	deadline := time.Now().Add(time.Second)
	for a.callCount() == 0 || b.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("models were not called concurrently")
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.release()
	if r := <-p.notify; r.ModelID != "b" || r.Rank != 1 {
		t.Fatalf("first shown = %+v", r)
	}
	a.release()

	select {
	case batch := <-done:
		if batch[0].ModelID != "b" || batch[1].ModelID != "a" {
			t.Errorf("arrival order = %s, %s", batch[0].ModelID, batch[1].ModelID)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatch did not finish")
	}
}

func TestDispatchPublishesRound(t *testing.T) {
	s := NewState(StateConfig{Catalog: newCatalog("a", "b"), Record: &fakeRecord{}})
	if _, err := s.Enter([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	bus := events.NewBus(32)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(16, events.EventVsDispatch, events.EventVsResult, events.EventVsAggregated)
	defer unsub()

	d := NewDispatcher(s, &fakeClients{clients: released(map[string]string{"a": "A"})}, newRecorder(2), bus)
	if _, err := d.Dispatch(context.Background(), chat.Input{Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	counts := map[events.EventType]int{}
	timeout := time.After(time.Second)
	for counts[events.EventVsAggregated] == 0 || counts[events.EventVsResult] < 2 || counts[events.EventVsDispatch] == 0 {
		select {
		case e := <-ch:
			counts[e.Type]++
			if e.SessionID != "sess_test" {
				t.Errorf("%s: session = %q", e.Type, e.SessionID)
			}
			if p, ok := events.GetVsResultPayload(e); ok && p.Model == "b" && p.Error == "" {
				t.Error("failed result should carry its error")
			}
		case <-timeout:
			t.Fatalf("events seen: %v", counts)
		}
	}
}
