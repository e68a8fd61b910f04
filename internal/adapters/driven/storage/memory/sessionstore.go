// Package memory provides in-memory implementations of driven port
// interfaces. Session history is deliberately process-local; losing it on
// restart is acceptable where losing the index is not.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

// DefaultMaxHistory is the number of exchanges kept per session.
const DefaultMaxHistory = 2

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu         sync.Mutex
	sessions   map[string]*session
	maxHistory int
}

// session pairs a history with its exclusivity gate. The gate is a
// one-slot channel: holding the token is holding the lock, which lets
// Acquire wait on it and on ctx at the same time.
type session struct {
	gate    chan struct{}
	history []domain.Exchange
}

// NewSessionStore creates a session store keeping maxHistory exchanges per
// session. Non-positive values fall back to DefaultMaxHistory.
func NewSessionStore(maxHistory int) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &SessionStore{
		sessions:   make(map[string]*session),
		maxHistory: maxHistory,
	}
}

// NewSession allocates a fresh session identifier.
func (s *SessionStore) NewSession() string {
	return uuid.NewString()
}

// Acquire takes the per-session lock, creating the session on first use.
func (s *SessionStore) Acquire(ctx context.Context, sessionID string) (func(), error) {
	sess := s.get(sessionID)

	select {
	case sess.gate <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() { <-sess.gate })
		}
		return release, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// History returns a copy of the session's exchanges, oldest first.
func (s *SessionStore) History(sessionID string) []domain.Exchange {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	out := make([]domain.Exchange, len(sess.history))
	copy(out, sess.history)
	return out
}

// Append records a completed exchange, evicting the oldest entry once the
// bound is exceeded.
func (s *SessionStore) Append(sessionID string, ex domain.Exchange) {
	sess := s.get(sessionID)

	sess.history = append(sess.history, ex)
	if len(sess.history) > s.maxHistory {
		sess.history = sess.history[len(sess.history)-s.maxHistory:]
	}
}

// get returns the session record, creating it on first use.
func (s *SessionStore) get(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{gate: make(chan struct{}, 1)}
		s.sessions[sessionID] = sess
	}
	return sess
}
