// Package session drives the multi-step entry flow: a per-identity state
// machine that collects the fields of a new transaction, or one edit to
// an existing one, across several inbound events. Nothing is written to
// the ledger until the terminal commit.
package session

import (
	"sync"

	"kasbook/internal/core"
	"kasbook/internal/ledger"
)

// Session is the draft state of one identity's entry flow. The ScopeKey
// is resolved once when the session starts and held for its whole
// duration, so a mid-session settings change never re-scopes a draft.
type Session struct {
	UserID int64
	Key    core.ScopeKey
	State  State

	// add-flow draft
	Kind     core.Kind
	Date     core.Date
	Category string
	Amount   int64

	// edit-flow target
	EditTxID  int64
	EditField ledger.Field

	// range-report flow
	RangeStart core.Date

	// standalone category-add from the settings menu
	CategoryOnly bool
}

// Store keeps at most one active session per identity. Starting a new
// session silently discards an unfinished one (last writer wins).
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Begin replaces any existing session for the identity.
func (s *Store) Begin(userID int64, key core.ScopeKey, state State) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{UserID: userID, Key: key, State: state}
	s.sessions[userID] = sess
	return sess
}

// Get returns the identity's active session, if any.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// End discards the identity's session and all draft data.
func (s *Store) End(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
