// Package anthropic provides a chat model adapter using the Anthropic API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

// Ensure ChatService implements the interface.
var _ driven.ChatService = (*ChatService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-20250514"
	DefaultTimeout = 120 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	// requestsPerSecond paces calls under the lowest API tier limit.
	requestsPerSecond = 2
)

// Config holds configuration for the Anthropic chat service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the chat model to use (default: claude-sonnet-4-20250514).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ChatService provides tool-calling generation using the Anthropic API.
type ChatService struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string                  `json:"model"`
	Messages    []apiMessage            `json:"messages"`
	MaxTokens   int                     `json:"max_tokens"`
	System      string                  `json:"system,omitempty"`
	Temperature *float64                `json:"temperature,omitempty"`
	Tools       []driven.ToolDefinition `json:"tools,omitempty"`
	ToolChoice  *toolChoice             `json:"tool_choice,omitempty"`
}

// toolChoice selects how the model may use the declared tools.
type toolChoice struct {
	Type string `json:"type"`
}

// apiMessage is one conversation turn. Content is always the block list
// form so text, tool_use, and tool_result turns share a shape.
type apiMessage struct {
	Role    string `json:"role"`
	Content []any  `json:"content"`
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolUseBlock struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type toolResultBlock struct {
	Type      string `json:"type"`
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatService creates a new Anthropic chat service.
func NewChatService(cfg Config) (*ChatService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
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
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Generate produces the next assistant turn, declaring tools when the
// request carries them.
func (s *ChatService) Generate(ctx context.Context, req driven.ChatRequest) (*driven.ChatResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	// Temperature zero is meaningful here, so it is always sent.
	temperature := req.Temperature

	reqBody := messagesRequest{
		Model:       s.model,
		Messages:    convertMessages(req.Messages),
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: &temperature,
	}
	if len(req.Tools) > 0 {
		reqBody.Tools = req.Tools
		reqBody.ToolChoice = &toolChoice{Type: "auto"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Network failures and client timeouts are worth one retry.
		return nil, &domain.GenerationError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.GenerationError{Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if msgResp.Error != nil {
		return nil, &domain.GenerationError{Err: fmt.Errorf("anthropic error: %s", msgResp.Error.Message)}
	}

	return decodeResponse(msgResp)
}

// convertMessages maps port messages onto the Anthropic block format.
func convertMessages(messages []driven.ChatMessage) []apiMessage {
	apiMessages := make([]apiMessage, 0, len(messages))
	for _, msg := range messages {
		var blocks []any

		if len(msg.ToolResults) > 0 {
			for _, result := range msg.ToolResults {
				blocks = append(blocks, toolResultBlock{
					Type:      "tool_result",
					ToolUseID: result.CallID,
					Content:   result.Content,
					IsError:   result.IsError,
				})
			}
		} else {
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				blocks = append(blocks, textBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, toolUseBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: input,
				})
			}
		}

		apiMessages = append(apiMessages, apiMessage{Role: msg.Role, Content: blocks})
	}
	return apiMessages
}

// decodeResponse flattens content blocks into text plus ordered tool calls.
func decodeResponse(msgResp messagesResponse) (*driven.ChatResponse, error) {
	var text strings.Builder
	var calls []driven.ToolCall

	for _, block := range msgResp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, fmt.Errorf("decode tool input for %q: %w", block.Name, err)
				}
			}
			calls = append(calls, driven.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}

	if text.Len() == 0 && len(calls) == 0 {
		return nil, &domain.GenerationError{Err: errors.New("anthropic: no response content returned")}
	}

	return &driven.ChatResponse{
		Text:       text.String(),
		ToolCalls:  calls,
		StopReason: msgResp.StopReason,
	}, nil
}

// classifyStatus maps an HTTP failure onto the generation error taxonomy:
// rate limits and server errors are transient, the rest are not.
func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("anthropic error (status %d): %s", status, apiErrorMessage(body))
	transient := status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	return &domain.GenerationError{Transient: transient, Err: err}
}

// apiErrorMessage extracts the API's error message, falling back to the
// raw body.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// ModelName returns the name of the chat model being used.
func (s *ChatService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /v1/models
// endpoint. This validates the API key without running inference.
func (s *ChatService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("anthropic: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *ChatService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
