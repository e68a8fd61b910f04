package driving

import (
	"context"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// AssistantService answers questions over the ingested corpus via the
// tool-calling model loop, maintaining per-session conversation history.
type AssistantService interface {
	// Query answers one question within a session and returns the answer
	// text plus the citations staged by any tool executions. The call
	// holds the session's lock for its full duration; on failure the
	// session history is left unmutated.
	Query(ctx context.Context, sessionID, question string) (domain.Answer, error)

	// NewSession allocates a session id for a fresh conversation.
	NewSession() string
}
