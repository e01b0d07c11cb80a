package versus

import (
	"bytes"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/dohr-michael/arena/internal/models"
)

func TestEnterRequiresTwoModels(t *testing.T) {
	s := NewState(StateConfig{Catalog: newCatalog("a", "b")})

	for _, ids := range [][]string{nil, {}, {"a"}} {
		if _, err := s.Enter(ids); !errors.Is(err, ErrInvalidArity) {
			t.Errorf("Enter(%v) = %v, want ErrInvalidArity", ids, err)
		}
	}
	if s.Active() {
		t.Error("mode should stay inactive")
	}
}

func TestEnterResolvesAll(t *testing.T) {
	var out bytes.Buffer
	s := NewState(StateConfig{Catalog: newCatalog("a", "b", "c:x"), Out: &out})

	mode, err := s.Enter([]string{"a", "b", "c:x"})
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if mode.Len() != 3 {
		t.Errorf("Len = %d, want 3", mode.Len())
	}
	if !slices.Equal(mode.IDs(), []string{"a", "b", "c:x"}) {
		t.Errorf("IDs = %v", mode.IDs())
	}
	if got := out.String(); got != "VS mode initialized with 3 models\n" {
		t.Errorf("output = %q", got)
	}
	if s.Mode() != mode {
		t.Error("state should hold the new mode")
	}
}

func TestEnterUnknownKeepsPreviousMode(t *testing.T) {
	s := NewState(StateConfig{Catalog: newCatalog("a", "b")})
	prev, err := s.Enter([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Enter([]string{"a", "nope"})
	if !errors.Is(err, models.ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	if s.Mode() != prev {
		t.Error("failed Enter must not touch the active set")
	}
}

func TestEnterReplaces(t *testing.T) {
	s := NewState(StateConfig{Catalog: newCatalog("a", "b", "c")})
	if _, err := s.Enter([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Enter([]string{"c", "a"}); err != nil {
		t.Fatal(err)
	}
	if got := s.Mode().IDs(); !slices.Equal(got, []string{"c", "a"}) {
		t.Errorf("IDs = %v, want [c a] with no merge", got)
	}
}

func TestExitIdempotent(t *testing.T) {
	s := NewState(StateConfig{Catalog: newCatalog("a", "b")})
	s.Exit()
	if _, err := s.Enter([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	s.Exit()
	s.Exit()
	if s.Active() {
		t.Error("mode should be inactive")
	}
}

func TestModeIsACopy(t *testing.T) {
	s := NewState(StateConfig{Catalog: newCatalog("a", "b")})
	mode, _ := s.Enter([]string{"a", "b"})

	ms := mode.Models()
	ms[0] = testModel("zzz")
	if m, _ := mode.At(0); m.ID != "a" {
		t.Errorf("mode mutated through Models(): %q", m.ID)
	}
	if _, ok := mode.At(2); ok {
		t.Error("At out of range should fail")
	}
	var none *Mode
	if _, ok := none.At(0); ok {
		t.Error("At on nil mode should fail")
	}
}

func TestParseModelList(t *testing.T) {
	got := ParseModelList(" anthropic, openai:gpt-4o ,ollama ")
	want := []string{"anthropic", "openai:gpt-4o", "ollama"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := ParseModelList("solo"); len(got) != 1 {
		t.Errorf("single entry: %v", got)
	}
}

func TestSetModelRebindsRecord(t *testing.T) {
	rec := &fakeRecord{}
	s := NewState(StateConfig{Catalog: newCatalog("a"), Record: rec, Model: testModel("a")})

	if err := s.SetModel(testModel("b")); err != nil {
		t.Fatal(err)
	}
	if s.Model().ID != "b" {
		t.Errorf("Model = %q", s.Model().ID)
	}
	if !slices.Equal(rec.models, []string{"b"}) {
		t.Errorf("record models = %v", rec.models)
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState(StateConfig{Catalog: newCatalog("a", "b", "c")})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = s.Enter([]string{"a", "b"})
		}()
		go func() {
			defer wg.Done()
			s.Exit()
		}()
		go func() {
			defer wg.Done()
			if m := s.Mode(); m != nil && m.Len() < 2 {
				t.Error("observed a partial set")
			}
		}()
	}
	wg.Wait()
}
