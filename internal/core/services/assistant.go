package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
	"github.com/lectern-ai/lectern/internal/core/ports/driving"
	"github.com/lectern-ai/lectern/internal/core/tools"
	"github.com/lectern-ai/lectern/internal/logger"
)

// Ensure AssistantService implements the interface.
var _ driving.AssistantService = (*AssistantService)(nil)

// Generation defaults for the answer loop.
const (
	defaultMaxTokens    = 800
	defaultTemperature  = 0.0
	defaultToolRounds   = 1
	defaultRetryBackoff = time.Second
)

// queryState tracks where one answer loop stands.
type queryState int

const (
	stateAwaitingModel queryState = iota
	stateModelResponded
	stateToolRequested
	stateToolExecuted
	stateDone
)

// AssistantService runs the tool-calling answer loop. The model decides
// whether to search; the service bounds how often it may. One query takes
// at most maxToolRounds tool round-trips, after which generation runs
// without tool declarations so the model must produce text.
type AssistantService struct {
	chat     driven.ChatService
	tools    *tools.Registry
	sessions driven.SessionStore

	maxTokens     int
	temperature   float64
	maxToolRounds int
	retryBackoff  time.Duration
}

// NewAssistantService creates the assistant over a chat model, a tool
// registry, and a session store. The registry is a fixed collaborator
// rather than a port: tools are part of this core, not a swappable
// backend.
func NewAssistantService(chat driven.ChatService, registry *tools.Registry, sessions driven.SessionStore) *AssistantService {
	return &AssistantService{
		chat:          chat,
		tools:         registry,
		sessions:      sessions,
		maxTokens:     defaultMaxTokens,
		temperature:   defaultTemperature,
		maxToolRounds: defaultToolRounds,
		retryBackoff:  defaultRetryBackoff,
	}
}

// NewSession allocates a session id for a fresh conversation.
func (s *AssistantService) NewSession() string {
	return s.sessions.NewSession()
}

// Query answers one question within a session. An empty session id runs
// the query standalone: no history is read and nothing is recorded.
func (s *AssistantService) Query(ctx context.Context, sessionID, question string) (domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, fmt.Errorf("query: %w: question is empty", domain.ErrInvalidInput)
	}

	if sessionID != "" {
		release, err := s.sessions.Acquire(ctx, sessionID)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("acquiring session: %w", err)
		}
		defer release()
	}

	// Sources must not leak into the next answer, including when this
	// query fails or is cancelled mid-flight.
	defer s.tools.ResetSources()

	logger.Section("Query Execution")
	logger.Debug("Session: %q", sessionID)
	logger.Debug("Question: %q", question)

	system := systemPrompt
	if history := s.history(sessionID); history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []driven.ChatMessage{{
		Role:    driven.RoleUser,
		Content: fmt.Sprintf(queryPrompt, question),
	}}

	answer, err := s.run(ctx, system, messages)
	if err != nil {
		return domain.Answer{}, err
	}

	// History is recorded only on success so a failed query can be
	// retried from unchanged state.
	if sessionID != "" {
		s.sessions.Append(sessionID, domain.Exchange{Question: question, Answer: answer.Text})
	}

	logger.Debug("Answer: %d chars, %d sources", len(answer.Text), len(answer.Sources))
	return answer, nil
}

// run drives the answer state machine to completion.
func (s *AssistantService) run(ctx context.Context, system string, messages []driven.ChatMessage) (domain.Answer, error) {
	var (
		state      = stateAwaitingModel
		resp       *driven.ChatResponse
		err        error
		toolRounds int
	)

	for state != stateDone {
		switch state {
		case stateAwaitingModel:
			req := driven.ChatRequest{
				System:      system,
				Messages:    messages,
				MaxTokens:   s.maxTokens,
				Temperature: s.temperature,
			}
			// Tools are only declared while round-trips remain; the
			// last generation cannot request another round.
			if toolRounds < s.maxToolRounds {
				req.Tools = s.tools.Definitions()
			}
			resp, err = s.generate(ctx, req)
			if err != nil {
				return domain.Answer{}, err
			}
			state = stateModelResponded

		case stateModelResponded:
			if len(resp.ToolCalls) > 0 && toolRounds < s.maxToolRounds {
				state = stateToolRequested
			} else {
				// Either a plain answer, or the round budget is spent:
				// return the best available text.
				state = stateDone
			}

		case stateToolRequested:
			logger.Debug("Model requested %d tool call(s)", len(resp.ToolCalls))
			messages = append(messages, driven.ChatMessage{
				Role:      driven.RoleAssistant,
				Content:   resp.Text,
				ToolCalls: resp.ToolCalls,
			})
			results := s.executeCalls(ctx, resp.ToolCalls)
			messages = append(messages, driven.ChatMessage{
				Role:        driven.RoleUser,
				ToolResults: results,
			})
			state = stateToolExecuted

		case stateToolExecuted:
			toolRounds++
			state = stateAwaitingModel
		}
	}

	return domain.Answer{Text: resp.Text, Sources: s.tools.Sources()}, nil
}

// executeCalls runs every requested tool in order. Failures become error
// results the model sees and can recover from conversationally; they never
// abort the query.
func (s *AssistantService) executeCalls(ctx context.Context, calls []driven.ToolCall) []driven.ToolResult {
	results := make([]driven.ToolResult, 0, len(calls))
	for _, call := range calls {
		text, err := s.tools.Execute(ctx, call.Name, call.Arguments)
		if err != nil {
			content := err.Error()
			if errors.Is(err, domain.ErrToolNotFound) {
				content = fmt.Sprintf("Tool '%s' not found", call.Name)
			}
			logger.Warn("Tool %q failed: %v", call.Name, err)
			results = append(results, driven.ToolResult{CallID: call.ID, Content: content, IsError: true})
			continue
		}
		logger.Debug("Tool %q returned %d chars", call.Name, len(text))
		results = append(results, driven.ToolResult{CallID: call.ID, Content: text})
	}
	return results
}

// generate calls the model, retrying once after a backoff when the
// failure is transient (rate limit, server error, timeout).
func (s *AssistantService) generate(ctx context.Context, req driven.ChatRequest) (*driven.ChatResponse, error) {
	resp, err := s.chat.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !domain.IsTransient(err) {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	logger.Warn("Generation failed, retrying once: %v", err)
	select {
	case <-time.After(s.retryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	resp, err = s.chat.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generating response after retry: %w", err)
	}
	return resp, nil
}

// history renders the session's prior exchanges for the system prompt.
func (s *AssistantService) history(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return domain.FormatHistory(s.sessions.History(sessionID))
}
