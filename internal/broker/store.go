package broker

import (
	"fmt"
	"sync"
)

// Store is the thread-safe session registry. Map operations are the only
// critical sections; transport I/O never happens under the lock, so
// operations on different sessions proceed independently.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Insert adds a session under its ID. It never overwrites: a colliding
// identifier is reported as an error so the caller can retry with a fresh
// one.
func (st *Store) Insert(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sessions[s.ID]; exists {
		return fmt.Errorf("session identifier %q already in use", s.ID)
	}
	st.sessions[s.ID] = s
	return nil
}

// Get looks up a session by ID.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove atomically deletes and returns the session. Exactly one caller wins
// when removal races the reaper; the loser sees ok=false, which is expected
// and not an error.
func (st *Store) Remove(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	delete(st.sessions, id)
	return s, true
}

// Snapshot returns a point-in-time slice of the current sessions. Sessions
// inserted afterwards are picked up on the next call.
func (st *Store) Snapshot() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of tracked sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
