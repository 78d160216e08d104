// Package convo keeps per-user conversation state: the selected persona and
// a bounded history of user/model turns. State is held in an expiring
// in-memory cache so long-idle users fall away on their own.
package convo

import (
	"strconv"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/roelfdiedericks/aibolit/internal/persona"
)

// Role is the speaker of a history turn, in the wire vocabulary the
// generative API expects.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one history entry.
type Turn struct {
	Role Role
	Text string
}

// HistoryCap bounds the per-user history: the most recent 20 turns
// (10 question/answer pairs) are kept, older turns are dropped.
const HistoryCap = 20

// Idle users are evicted after this long without activity.
const userTTL = 24 * time.Hour

type userState struct {
	mu      sync.Mutex
	persona persona.ID
	history []Turn
}

// Store holds the state of every active user.
type Store struct {
	mu    sync.Mutex // guards the get-or-create path
	users *cache.Cache
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users: cache.New(userTTL, 30*time.Minute),
	}
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// state returns the user's state, creating it with the default persona on
// first contact. Every call refreshes the eviction clock.
func (s *Store) state(userID int64) *userState {
	k := key(userID)

	s.mu.Lock()
	var st *userState
	if v, ok := s.users.Get(k); ok {
		st = v.(*userState)
	} else {
		st = &userState{persona: persona.Default}
	}
	s.users.Set(k, st, cache.DefaultExpiration)
	s.mu.Unlock()

	return st
}

// Append records a completed exchange: the user's question followed by the
// model's answer. The history is trimmed to the most recent HistoryCap
// turns afterwards.
func (s *Store) Append(userID int64, question, answer string) {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.history = append(st.history,
		Turn{Role: RoleUser, Text: question},
		Turn{Role: RoleModel, Text: answer},
	)
	if n := len(st.history); n > HistoryCap {
		st.history = append(st.history[:0:0], st.history[n-HistoryCap:]...)
	}
}

// History returns a copy of the user's current history, oldest first.
func (s *Store) History(userID int64) []Turn {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Turn, len(st.history))
	copy(out, st.history)
	return out
}

// Clear drops the user's history. The selected persona survives.
func (s *Store) Clear(userID int64) {
	st := s.state(userID)
	st.mu.Lock()
	st.history = nil
	st.mu.Unlock()
}

// SetPersona switches the user's persona. History is kept: the user can
// change specialist mid-conversation without losing context.
func (s *Store) SetPersona(userID int64, id persona.ID) {
	st := s.state(userID)
	st.mu.Lock()
	st.persona = id
	st.mu.Unlock()
}

// Persona returns the user's selected persona, lazily defaulting new users.
func (s *Store) Persona(userID int64) persona.ID {
	st := s.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.persona
}

// ActiveUsers returns how many users currently hold state.
func (s *Store) ActiveUsers() int {
	return s.users.ItemCount()
}
