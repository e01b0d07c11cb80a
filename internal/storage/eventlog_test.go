package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dohr-michael/arena/internal/events"
)

func waitForFile(t *testing.T, path string) []byte {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return data
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s not written", path)
	return nil
}

func TestEventLogger_WriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(64)
	defer bus.Close()

	el := NewEventLogger(dir, bus)
	defer el.Close()

	bus.Publish(events.Event{
		ID:        "evt-1",
		Type:      events.EventVsDispatch,
		Timestamp: time.Now(),
		Source:    events.SourceDispatcher,
		Payload:   map[string]any{"round": 1},
	})

	data := waitForFile(t, filepath.Join(dir, "_global.jsonl"))

	var got events.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "evt-1" {
		t.Errorf("got ID %q, want %q", got.ID, "evt-1")
	}
	if got.Type != events.EventVsDispatch {
		t.Errorf("got type %q, want %q", got.Type, events.EventVsDispatch)
	}
}

func TestEventLogger_SessionRouting(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(64)
	defer bus.Close()

	el := NewEventLogger(dir, bus)
	defer el.Close()

	bus.Publish(events.NewTypedEventWithSession(events.SourceSelector,
		events.VsSelectedPayload{Rank: 2, Index: 1, Model: "openai"}, "sess_abc123"))

	data := waitForFile(t, filepath.Join(dir, "sess_abc123.jsonl"))
	var got events.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != events.EventVsSelected {
		t.Errorf("got type %q", got.Type)
	}
	if _, err := os.Stat(filepath.Join(dir, "_global.jsonl")); !os.IsNotExist(err) {
		t.Error("session event must not reach the global log")
	}
}

func TestEventLogger_SkipsRequestPhase(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(64)
	defer bus.Close()

	el := NewEventLogger(dir, bus)
	defer el.Close()

	bus.Publish(events.NewTypedEvent(events.SourceChat, events.LLMCallPayload{Phase: events.LLMPhaseRequest, Model: "a"}))
	bus.Publish(events.NewTypedEvent(events.SourceChat, events.LLMCallPayload{Phase: events.LLMPhaseResponse, Model: "a"}))

	path := filepath.Join(dir, "_global.jsonl")
	waitForFile(t, path)
	time.Sleep(50 * time.Millisecond)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e events.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("corrupt line: %v", err)
		}
		p, _ := events.GetLLMCallPayload(e)
		if p.Phase != events.LLMPhaseResponse {
			t.Errorf("unexpected phase %q", p.Phase)
		}
		lines++
	}
	if lines != 1 {
		t.Errorf("expected 1 line, got %d", lines)
	}
}

func TestEventLogger_ConcurrentWritesStayLineDelimited(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(256)
	defer bus.Close()

	el := NewEventLogger(dir, bus)
	defer el.Close()

	const n = 50
	for i := 0; i < n; i++ {
		bus.Publish(events.NewTypedEventWithSession(events.SourceDispatcher,
			events.VsResultPayload{Round: 1, Rank: i + 1, Model: "m"}, "sess_c"))
	}

	path := filepath.Join(dir, "sess_c.jsonl")
	deadline := time.Now().Add(2 * time.Second)
	var lines int
	for time.Now().Before(deadline) {
		data, _ := os.ReadFile(path)
		lines = 0
		for _, b := range data {
			if b == '\n' {
				lines++
			}
		}
		if lines == n {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if lines != n {
		t.Fatalf("expected %d lines, got %d", n, lines)
	}

	f, _ := os.Open(path)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e events.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("interleaved write: %v", err)
		}
	}
}

func TestEventLogger_KeepsRoundOrder(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(64)
	el := NewEventLogger(dir, bus)

	const n = 20
	for rank := 1; rank <= n; rank++ {
		bus.Publish(events.NewTypedEventWithSession(events.SourceDispatcher,
			events.VsResultPayload{Round: 1, Rank: rank, Model: "m"}, "s"))
	}
	bus.Close()
	el.Close()

	f, err := os.Open(filepath.Join(dir, "s.jsonl"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var ranks []int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e events.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		p, ok := events.GetVsResultPayload(e)
		if !ok {
			t.Fatalf("unexpected event %s", e.Type)
		}
		ranks = append(ranks, p.Rank)
	}
	if len(ranks) != n {
		t.Fatalf("logged %d of %d results", len(ranks), n)
	}
	for i, r := range ranks {
		if r != i+1 {
			t.Fatalf("line %d holds rank %d", i+1, r)
		}
	}
}
