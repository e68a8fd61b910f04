// Package ollama provides a chat model adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

// Ensure ChatService implements the interface.
var _ driven.ChatService = (*ChatService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama chat service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the chat model to use (default: llama3.2). The model must
	// support tool calling for search to work.
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ChatService provides tool-calling generation using Ollama.
type ChatService struct {
	client  *http.Client
	baseURL string
	model   string
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []apiTool     `json:"tools,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format. Tool results travel as
// separate "tool" role messages; Ollama correlates them by order, not id.
type chatMessage struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []apiToolCall `json:"tool_calls,omitempty"`
}

// apiTool wraps a tool declaration in Ollama's function envelope.
type apiTool struct {
	Type     string      `json:"type"`
	Function apiFunction `json:"function"`
}

type apiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type apiToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
}

// NewChatService creates a new Ollama chat service.
func NewChatService(cfg Config) *ChatService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ChatService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Generate produces the next assistant turn, declaring tools when the
// request carries them.
func (s *ChatService) Generate(ctx context.Context, req driven.ChatRequest) (*driven.ChatResponse, error) {
	reqBody := chatRequest{
		Model:    s.model,
		Messages: convertMessages(req.System, req.Messages),
		Stream:   false,
	}
	for _, tool := range req.Tools {
		reqBody.Tools = append(reqBody.Tools, apiTool{
			Type: "function",
			Function: apiFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	// Temperature zero is meaningful, so it is always sent.
	temperature := req.Temperature
	reqBody.Options = &options{
		NumPredict:  req.MaxTokens,
		Temperature: &temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		// A local server that is still loading the model is worth a retry.
		return nil, &domain.GenerationError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			body = []byte("failed to read response")
		}
		apiErr := fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
		transient := resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode >= http.StatusInternalServerError
		return nil, &domain.GenerationError{Transient: transient, Err: apiErr}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return decodeResponse(chatResp), nil
}

// convertMessages maps port messages onto Ollama's flat message list. The
// system prompt becomes a leading "system" message and every tool result a
// "tool" message, since Ollama has no nested content blocks.
func convertMessages(system string, messages []driven.ChatMessage) []chatMessage {
	converted := make([]chatMessage, 0, len(messages)+1)
	if system != "" {
		converted = append(converted, chatMessage{Role: "system", Content: system})
	}

	for _, msg := range messages {
		if len(msg.ToolResults) > 0 {
			for _, result := range msg.ToolResults {
				converted = append(converted, chatMessage{Role: "tool", Content: result.Content})
			}
			continue
		}

		out := chatMessage{Role: msg.Role, Content: msg.Content}
		for _, call := range msg.ToolCalls {
			var apiCall apiToolCall
			apiCall.Function.Name = call.Name
			apiCall.Function.Arguments = call.Arguments
			out.ToolCalls = append(out.ToolCalls, apiCall)
		}
		converted = append(converted, out)
	}
	return converted
}

// decodeResponse flattens the reply into text plus ordered tool calls.
// Ollama does not issue call ids, so positional ids keep the round-trip
// uniform for the caller.
func decodeResponse(chatResp chatResponse) *driven.ChatResponse {
	resp := &driven.ChatResponse{
		Text:       chatResp.Message.Content,
		StopReason: chatResp.DoneReason,
	}
	for i, call := range chatResp.Message.ToolCalls {
		args := call.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		resp.ToolCalls = append(resp.ToolCalls, driven.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	return resp
}

// ModelName returns the name of the chat model being used.
func (s *ChatService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags
// endpoint. This validates connectivity without running inference.
func (s *ChatService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *ChatService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
