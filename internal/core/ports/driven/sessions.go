package driven

import (
	"context"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// SessionStore holds bounded conversation history keyed by session id.
// Sessions are created on first use and never explicitly destroyed; the
// store keeps only the most recent N exchanges per session (oldest dropped
// first) to bound prompt size.
//
// A session's history is read and mutated only under its lock: callers
// Acquire before reading and release after the exchange is appended (or
// abandoned). Distinct sessions proceed fully in parallel.
type SessionStore interface {
	// NewSession allocates a fresh opaque session identifier.
	NewSession() string

	// Acquire takes the per-session lock, blocking while another query
	// for the same session is in flight. The returned release function
	// must be called exactly once; ctx cancellation abandons the wait.
	Acquire(ctx context.Context, sessionID string) (release func(), err error)

	// History returns a copy of the session's exchanges, oldest first.
	// Unknown ids yield an empty history.
	History(sessionID string) []domain.Exchange

	// Append records a completed exchange, evicting the oldest entry
	// once the bound is exceeded.
	Append(sessionID string, ex domain.Exchange)
}
