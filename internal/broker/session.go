package broker

import (
	"sync"
	"time"
)

// Session is one live, authenticated remote connection tracked by the Store.
// The identifying fields are immutable after creation; only the expiry
// deadline moves, and only forward.
type Session struct {
	ID       string
	Host     string
	Port     int
	Username string
	Banner   string

	transport Transport
	shell     ShellStream
	timeout   time.Duration

	mu        sync.Mutex
	expiresAt time.Time
	released  bool
}

func newSession(id string, host string, port int, username string, transport Transport, shell ShellStream, timeout time.Duration) *Session {
	return &Session{
		ID:        id,
		Host:      host,
		Port:      port,
		Username:  username,
		transport: transport,
		shell:     shell,
		timeout:   timeout,
		expiresAt: time.Now().Add(timeout),
	}
}

// Touch pushes the expiry deadline to now + timeout. The deadline never
// moves backward.
func (s *Session) Touch() {
	s.mu.Lock()
	if next := time.Now().Add(s.timeout); next.After(s.expiresAt) {
		s.expiresAt = next
	}
	s.mu.Unlock()
}

// ExpiresAt returns the current expiry deadline.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Expired reports whether the session's deadline is at or before now.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.expiresAt.After(now)
}

// Transport exposes the session's connection to collaborators that open
// their own channels on it (terminal attach, file transfer).
func (s *Session) Transport() Transport {
	return s.transport
}

// release disconnects the transport. Safe to call more than once; only the
// first call closes anything.
func (s *Session) release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if s.shell != nil {
		_ = s.shell.Close()
	}
	_ = s.transport.Close()
}
