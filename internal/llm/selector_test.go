package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeBackend scripts probe outcomes per (key, model) and records every
// probe issued.
type fakeBackend struct {
	mu      sync.Mutex
	probes  []string // "key|model" in call order
	respond func(apiKey, model string) error
	models  []string
	listErr error
}

func (f *fakeBackend) Probe(_ context.Context, apiKey, model string) error {
	f.mu.Lock()
	f.probes = append(f.probes, apiKey+"|"+model)
	f.mu.Unlock()
	if f.respond == nil {
		return nil
	}
	return f.respond(apiKey, model)
}

func (f *fakeBackend) ListModels(context.Context, string) ([]string, error) {
	return f.models, f.listErr
}

func (f *fakeBackend) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.probes)
}

var errQuota = errors.New("HTTP 429: RESOURCE_EXHAUSTED: quota exceeded")

func TestFindWorkingPairFirstCandidate(t *testing.T) {
	fb := &fakeBackend{models: []string{"gemini-2.0-flash-exp", "gemini-1.5-flash"}}
	sel, err := NewSelector(fb, []string{"k0", "k1"})
	if err != nil {
		t.Fatalf("NewSelector failed: %v", err)
	}

	pair, err := sel.FindWorkingPair(context.Background())
	if err != nil {
		t.Fatalf("FindWorkingPair failed: %v", err)
	}
	if pair.Model != "gemini-2.0-flash-exp" || pair.Key != 0 {
		t.Errorf("expected best-ranked model on key 0, got %v", pair)
	}
	if sel.State() != StateReady {
		t.Errorf("expected READY state, got %v", sel.State())
	}
	if fb.probeCount() != 1 {
		t.Errorf("expected exactly 1 probe, got %d", fb.probeCount())
	}
}

func TestModelMajorOrder(t *testing.T) {
	// Best model is quota-limited on every key; the selector must burn all
	// credentials on it before demoting to the next model.
	fb := &fakeBackend{
		models: []string{"gemini-2.0-flash-exp", "gemini-1.5-flash"},
		respond: func(_, model string) error {
			if model == "gemini-2.0-flash-exp" {
				return errQuota
			}
			return nil
		},
	}
	sel, _ := NewSelector(fb, []string{"k0", "k1"})

	pair, err := sel.FindWorkingPair(context.Background())
	if err != nil {
		t.Fatalf("FindWorkingPair failed: %v", err)
	}
	if pair.Model == "gemini-2.0-flash-exp" {
		t.Errorf("expected demotion off the exhausted model, got %v", pair)
	}
	if pair.Key != 0 {
		t.Errorf("expected the demoted model to start back at key 0, got %v", pair)
	}

	ranked := RankModels(fb.models)
	if ranked[0] != "gemini-2.0-flash-exp" {
		t.Fatalf("expected flash-exp ranked first, got %v", ranked)
	}
	want := []string{
		"k0|gemini-2.0-flash-exp",
		"k1|gemini-2.0-flash-exp",
		"k0|" + ranked[1],
	}
	if len(fb.probes) != len(want) {
		t.Fatalf("expected probes %v, got %v", want, fb.probes)
	}
	for i := range want {
		if fb.probes[i] != want[i] {
			t.Errorf("probe %d: expected %s, got %s", i, want[i], fb.probes[i])
		}
	}
}

func TestQuotaFailureMarksPairOtherDoesNot(t *testing.T) {
	fb := &fakeBackend{
		models: []string{"gemini-2.0-flash-exp", "gemini-1.5-flash"},
		respond: func(apiKey, model string) error {
			if model == "gemini-2.0-flash-exp" {
				if apiKey == "k0" {
					return errQuota
				}
				return errors.New("HTTP 404: model not found")
			}
			return nil
		},
	}
	sel, _ := NewSelector(fb, []string{"k0", "k1"})

	if _, err := sel.FindWorkingPair(context.Background()); err != nil {
		t.Fatalf("FindWorkingPair failed: %v", err)
	}

	if !sel.Ledger().IsExhausted(Pair{Model: "gemini-2.0-flash-exp", Key: 0}) {
		t.Error("quota failure must mark the pair")
	}
	if sel.Ledger().IsExhausted(Pair{Model: "gemini-2.0-flash-exp", Key: 1}) {
		t.Error("non-quota failure must not mark the pair")
	}
}

func TestExhaustedWithoutProbingMarkedPairs(t *testing.T) {
	models := []string{"gemini-2.0-flash-exp", "gemini-1.5-flash"}
	fb := &fakeBackend{models: models}
	keys := []string{"k0", "k1", "k2"}
	sel, _ := NewSelector(fb, keys)

	// Pre-mark the entire pair space, fallback models included.
	for _, m := range RankModels(models) {
		for k := range keys {
			sel.Ledger().MarkExhausted(Pair{Model: m, Key: k})
		}
	}

	_, err := sel.FindWorkingPair(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if sel.State() != StateExhausted {
		t.Errorf("expected EXHAUSTED state, got %v", sel.State())
	}
	if fb.probeCount() != 0 {
		t.Errorf("marked pairs must be skipped without network probes, got %d probes", fb.probeCount())
	}
}

func TestTerminationBound(t *testing.T) {
	models := []string{"gemini-2.0-flash-exp", "gemini-1.5-flash", "gemini-1.5-pro"}
	fb := &fakeBackend{
		models:  models,
		respond: func(string, string) error { return errQuota },
	}
	keys := []string{"k0", "k1"}
	sel, _ := NewSelector(fb, keys)

	_, err := sel.FindWorkingPair(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}

	bound := len(RankModels(models)) * len(keys)
	if fb.probeCount() > bound {
		t.Errorf("probe count %d exceeds M×C bound %d", fb.probeCount(), bound)
	}

	// A second invocation must issue no probes at all: every pair is marked.
	before := fb.probeCount()
	if _, err := sel.FindWorkingPair(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted on re-entry, got %v", err)
	}
	if fb.probeCount() != before {
		t.Errorf("re-entry probed %d marked pairs", fb.probeCount()-before)
	}
}

func TestMarkExhaustedMonotonic(t *testing.T) {
	fb := &fakeBackend{models: []string{"gemini-1.5-flash"}}
	sel, _ := NewSelector(fb, []string{"k0"})

	p := Pair{Model: "gemini-1.5-flash", Key: 0}
	sel.Ledger().MarkExhausted(p)
	sel.Ledger().MarkExhausted(p) // idempotent

	for i := 0; i < 3; i++ {
		sel.FindWorkingPair(context.Background())
		if !sel.Ledger().IsExhausted(p) {
			t.Fatalf("pair unmarked after FindWorkingPair invocation %d", i+1)
		}
	}
}

func TestAdvanceReplacesActivePair(t *testing.T) {
	fb := &fakeBackend{models: []string{"gemini-2.0-flash-exp", "gemini-1.5-flash"}}
	sel, _ := NewSelector(fb, []string{"k0", "k1"})

	first, err := sel.FindWorkingPair(context.Background())
	if err != nil {
		t.Fatalf("initial search failed: %v", err)
	}

	next, err := sel.Advance(context.Background(), first)
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if next == first {
		t.Errorf("Advance returned the failed pair %v", next)
	}
	if !sel.Ledger().IsExhausted(first) {
		t.Error("Advance must mark the failed pair")
	}
	active, ok := sel.Active()
	if !ok || active != next {
		t.Errorf("active pair not updated: %v ok=%v", active, ok)
	}
}

func TestInnerLoopStartsAtCurrentKey(t *testing.T) {
	fb := &fakeBackend{models: []string{"gemini-2.0-flash-exp"}}
	sel, _ := NewSelector(fb, []string{"k0", "k1", "k2"})

	first, _ := sel.FindWorkingPair(context.Background())
	if first.Key != 0 {
		t.Fatalf("expected key 0 first, got %d", first.Key)
	}

	// Fail the active pair on quota; the replacement search should try the
	// current key's successor slots before wrapping around.
	fb.respond = func(apiKey, model string) error {
		if apiKey == "k0" {
			return errQuota
		}
		return nil
	}
	next, err := sel.Advance(context.Background(), first)
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if next.Key != 1 {
		t.Errorf("expected advance to key 1, got %v", next)
	}
}

func TestConcurrentSearchesSingleFlight(t *testing.T) {
	fb := &fakeBackend{models: []string{"gemini-2.0-flash-exp"}}
	sel, _ := NewSelector(fb, []string{"k0"})

	var wg sync.WaitGroup
	results := make([]Pair, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := sel.FindWorkingPair(context.Background())
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			results[i] = p
		}(i)
	}
	wg.Wait()

	if fb.probeCount() != 1 {
		t.Errorf("expected a single probe across concurrent searches, got %d", fb.probeCount())
	}
	for i, p := range results {
		if p.Model != "gemini-2.0-flash-exp" {
			t.Errorf("goroutine %d got %v", i, p)
		}
	}
}

func TestEmptyPoolRejected(t *testing.T) {
	if _, err := NewSelector(&fakeBackend{}, nil); err == nil {
		t.Fatal("expected error for empty credential pool")
	}
}

func TestPairBound(t *testing.T) {
	fb := &fakeBackend{models: []string{"gemini-1.5-flash"}}
	sel, _ := NewSelector(fb, []string{"k0", "k1"})

	if b := sel.PairBound(); b <= 0 {
		t.Fatalf("PairBound must be positive before any search, got %d", b)
	}

	sel.FindWorkingPair(context.Background())
	ranked := len(RankModels(fb.models))
	if b := sel.PairBound(); b != ranked*2 {
		t.Errorf("expected bound %d, got %d", ranked*2, b)
	}
}

func TestPairString(t *testing.T) {
	p := Pair{Model: "gemini-1.5-flash", Key: 2}
	if got, want := p.String(), fmt.Sprintf("%s/key#3", p.Model); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
