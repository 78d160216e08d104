package llm

import (
	"fmt"
	"sync"
)

// Pair is the unit of availability tracking: a model name plus an index
// into the credential pool.
type Pair struct {
	Model string
	Key   int
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/key#%d", p.Model, p.Key+1)
}

// Ledger records which (model, credential) pairs are known to be
// quota-exhausted. Marks are monotonic: once a pair is marked it stays
// marked for the rest of the process — a one-shot-per-run breaker, not a
// leaky bucket.
type Ledger struct {
	mu        sync.RWMutex
	exhausted map[Pair]bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{exhausted: make(map[Pair]bool)}
}

// IsExhausted reports whether the pair has been marked.
func (l *Ledger) IsExhausted(p Pair) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.exhausted[p]
}

// MarkExhausted marks a pair as quota-exhausted. Idempotent.
func (l *Ledger) MarkExhausted(p Pair) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exhausted[p] = true
}

// Size returns the number of marked pairs.
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.exhausted)
}
