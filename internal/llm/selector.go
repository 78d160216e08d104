package llm

import (
	"context"
	"errors"
	"sync"

	. "github.com/roelfdiedericks/aibolit/internal/logging"
)

// ErrExhausted is returned when every (model, credential) pair has been
// tried and marked. The caller surfaces this as "no backend available";
// it is not a crash.
var ErrExhausted = errors.New("all model/credential pairs exhausted")

// State is the selector's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateSearching
	StateReady
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateReady:
		return "ready"
	case StateExhausted:
		return "exhausted"
	default:
		return "uninitialized"
	}
}

// Backend is the minimal surface the selector needs from the generative
// backend: a cheap probe against one (key, model) combination and model
// discovery for the priority table.
type Backend interface {
	Probe(ctx context.Context, apiKey, model string) error
	ListModels(ctx context.Context, apiKey string) ([]string, error)
}

// Selector owns the process-wide active (model, credential) pair. It walks
// the ranked model table model-major: every credential is tried on the
// best-ranked model before demoting to a lesser one — accuracy before
// availability.
type Selector struct {
	backend Backend
	keys    []string
	ledger  *Ledger

	// searchMu serializes FindWorkingPair so that simultaneous quota
	// failures from many chats don't turn into a probe storm.
	searchMu sync.Mutex

	mu         sync.RWMutex
	state      State
	active     Pair
	lastRanked int // size of the last priority table, for the retry bound
}

// NewSelector creates a selector over the ordered credential pool. The pool
// must not be empty.
func NewSelector(backend Backend, keys []string) (*Selector, error) {
	if len(keys) == 0 {
		return nil, errors.New("selector: empty credential pool")
	}
	return &Selector{
		backend: backend,
		keys:    keys,
		ledger:  NewLedger(),
		state:   StateUninitialized,
	}, nil
}

// State returns the current lifecycle state.
func (s *Selector) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Active returns the currently selected pair, if any.
func (s *Selector) Active() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.state == StateReady
}

// Credential returns the API key for a pool index.
func (s *Selector) Credential(i int) string {
	return s.keys[i]
}

// KeyCount returns the credential pool size.
func (s *Selector) KeyCount() int {
	return len(s.keys)
}

// Ledger exposes the availability ledger (read by tests and status output).
func (s *Selector) Ledger() *Ledger {
	return s.ledger
}

// PairBound returns an upper bound on the number of distinct pairs, based
// on the last priority table. Callers use it to bound retry loops.
func (s *Selector) PairBound() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.lastRanked
	if n == 0 {
		n = len(fallbackModels)
	}
	return n * len(s.keys)
}

// EnsureReady returns the active pair, running a search first if the
// selector has never found one (or lost it to a quota failure).
func (s *Selector) EnsureReady(ctx context.Context) (Pair, error) {
	if pair, ok := s.Active(); ok {
		return pair, nil
	}
	return s.FindWorkingPair(ctx)
}

// MarkExhausted records a live quota failure against a pair and drops it
// as the active pair if it still is.
func (s *Selector) MarkExhausted(p Pair) {
	s.ledger.MarkExhausted(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReady && s.active == p {
		s.state = StateUninitialized
	}
}

// Advance marks the failed pair exhausted and searches for a replacement.
func (s *Selector) Advance(ctx context.Context, failed Pair) (Pair, error) {
	s.MarkExhausted(failed)
	return s.FindWorkingPair(ctx)
}

// FindWorkingPair probes (model, credential) combinations until one
// answers, skipping every pair the ledger has marked. The outer loop walks
// the ranked model table; the inner loop walks credentials starting from
// the currently selected index. At most models×credentials probes are
// issued per invocation. Calls are serialized; a caller that was blocked
// behind a successful search returns that result without probing again.
func (s *Selector) FindWorkingPair(ctx context.Context) (Pair, error) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	// Another caller may have finished the search while we waited.
	if pair, ok := s.Active(); ok && !s.ledger.IsExhausted(pair) {
		return pair, nil
	}

	s.mu.Lock()
	s.state = StateSearching
	startKey := s.active.Key
	s.mu.Unlock()

	candidates := s.rank(ctx, startKey)

	s.mu.Lock()
	s.lastRanked = len(candidates)
	s.mu.Unlock()

	probes := 0
	for _, model := range candidates {
		for i := 0; i < len(s.keys); i++ {
			k := (startKey + i) % len(s.keys)
			pair := Pair{Model: model, Key: k}
			if s.ledger.IsExhausted(pair) {
				continue
			}

			probes++
			err := s.backend.Probe(ctx, s.keys[k], model)
			if err == nil {
				s.mu.Lock()
				s.state = StateReady
				s.active = pair
				s.mu.Unlock()
				L_info("selector: backend selected", "pair", pair.String(), "probes", probes)
				return pair, nil
			}

			if IsQuota(err) {
				s.ledger.MarkExhausted(pair)
				L_debug("selector: pair quota-exhausted", "pair", pair.String())
				continue
			}
			// Unusable but not quota-limited: skip without marking so a
			// later search may try it again.
			L_debug("selector: pair unusable", "pair", pair.String(), "error", err)
		}
	}

	s.mu.Lock()
	s.state = StateExhausted
	s.mu.Unlock()
	L_warn("selector: exhausted", "models", len(candidates), "keys", len(s.keys), "probes", probes)
	return Pair{}, ErrExhausted
}

// rank builds the priority table for this search: live discovery on the
// current credential merged with the static fallback set. Discovery
// failures are non-fatal — the fallback set alone still ranks.
func (s *Selector) rank(ctx context.Context, keyIndex int) []string {
	discovered, err := s.backend.ListModels(ctx, s.keys[keyIndex])
	if err != nil {
		L_debug("selector: model discovery failed, using fallback list", "error", err)
	}
	return RankModels(discovered)
}
