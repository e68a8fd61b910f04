// Package openai provides a chat model adapter using the OpenAI API.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	// requestsPerSecond paces calls under the lowest API tier limit.
	requestsPerSecond = 2
)

// Config holds configuration for the OpenAI chat service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ChatService provides tool-calling generation using the OpenAI API.
type ChatService struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	model   string
}

// chatRequest is the OpenAI /chat/completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []toolEntry   `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// chatMessage is one conversation turn. Tool results travel as separate
// "tool" role messages correlated by ToolCallID.
type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// toolEntry wraps a function declaration the way the API expects.
type toolEntry struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// wireToolCall carries a function call. Arguments is a JSON-encoded
// string on the wire, unlike the structured map the port uses.
type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// chatResponse is the OpenAI /chat/completions response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewChatService creates a new OpenAI chat service.
func NewChatService(cfg Config) (*ChatService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
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

	// Temperature zero is meaningful here, so it is always sent.
	temperature := req.Temperature

	reqBody := chatRequest{
		Model:       s.model,
		Messages:    convertMessages(req.System, req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}
	if len(req.Tools) > 0 {
		reqBody.Tools = convertTools(req.Tools)
		reqBody.ToolChoice = "auto"
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

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

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, &domain.GenerationError{Err: fmt.Errorf("openai error: %s", chatResp.Error.Message)}
	}

	return decodeResponse(chatResp)
}

// convertTools wraps port tool definitions as function declarations.
func convertTools(tools []driven.ToolDefinition) []toolEntry {
	entries := make([]toolEntry, 0, len(tools))
	for _, tool := range tools {
		entries = append(entries, toolEntry{
			Type: "function",
			Function: functionSpec{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}
	return entries
}

// convertMessages maps port messages onto the chat-completions format.
// The system prompt becomes the leading message; tool results fan out
// into one "tool" message per result.
func convertMessages(system string, messages []driven.ChatMessage) []chatMessage {
	apiMessages := make([]chatMessage, 0, len(messages)+1)
	if system != "" {
		apiMessages = append(apiMessages, chatMessage{Role: "system", Content: system})
	}

	for _, msg := range messages {
		if len(msg.ToolResults) > 0 {
			for _, result := range msg.ToolResults {
				content := result.Content
				if result.IsError {
					content = "Error: " + content
				}
				apiMessages = append(apiMessages, chatMessage{
					Role:       "tool",
					Content:    content,
					ToolCallID: result.CallID,
				})
			}
			continue
		}

		apiMsg := chatMessage{Role: msg.Role, Content: msg.Content}
		for _, call := range msg.ToolCalls {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, wireToolCall{
				ID:       call.ID,
				Type:     "function",
				Function: functionCall{Name: call.Name, Arguments: encodeArguments(call.Arguments)},
			})
		}
		apiMessages = append(apiMessages, apiMsg)
	}
	return apiMessages
}

// encodeArguments renders structured call arguments as the wire's JSON
// string form.
func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// decodeResponse flattens the first choice into text plus ordered tool
// calls.
func decodeResponse(chatResp chatResponse) (*driven.ChatResponse, error) {
	if len(chatResp.Choices) == 0 {
		return nil, &domain.GenerationError{Err: errors.New("openai: no response choices returned")}
	}

	choice := chatResp.Choices[0]
	calls := make([]driven.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, call := range choice.Message.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("decode tool arguments for %q: %w", call.Function.Name, err)
			}
		}
		calls = append(calls, driven.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}

	if choice.Message.Content == "" && len(calls) == 0 {
		return nil, &domain.GenerationError{Err: errors.New("openai: no response content returned")}
	}

	return &driven.ChatResponse{
		Text:       choice.Message.Content,
		ToolCalls:  calls,
		StopReason: choice.FinishReason,
	}, nil
}

// classifyStatus maps an HTTP failure onto the generation error taxonomy:
// rate limits and server errors are transient, the rest are not.
func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("openai error (status %d): %s", status, apiErrorMessage(body))
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

// Ping validates the service is reachable by checking the /models endpoint.
// This validates the API key without running inference.
func (s *ChatService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *ChatService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
