package driven

import "context"

// Message roles understood by ChatService implementations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatService is the tool-calling language model capability.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - OpenAI (chat completions with function calling)
//   - Ollama (local models)
//
// Unlike a plain completion service, Generate accepts tool declarations and
// the response may carry tool calls instead of (or alongside) text. Errors
// are reported as *domain.GenerationError so the caller can distinguish
// transient failures (worth one retry) from fatal ones.
type ChatService interface {
	// Generate produces the next assistant turn for the given request.
	Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatRequest is one generation call.
type ChatRequest struct {
	// System is the system prompt, kept separate from the message list.
	System string

	// Messages is the conversation so far, oldest first.
	Messages []ChatMessage

	// Tools declares the capabilities the model may request. Empty means
	// the model must answer directly.
	Tools []ToolDefinition

	// MaxTokens caps the generated response length.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
// Exactly one of Content, ToolCalls, or ToolResults is typically set;
// assistant messages may carry text and tool calls together.
type ChatMessage struct {
	// Role is RoleUser or RoleAssistant.
	Role string

	// Content is the message text.
	Content string

	// ToolCalls are the tool invocations an assistant message requested.
	ToolCalls []ToolCall

	// ToolResults are tool outputs carried back on a user message.
	ToolResults []ToolResult
}

// ToolDefinition declares one callable tool to the model.
type ToolDefinition struct {
	// Name is the tool identifier the model uses to request execution.
	Name string `json:"name"`

	// Description tells the model when the tool is worth calling.
	Description string `json:"description"`

	// InputSchema is a JSON Schema object describing the parameters.
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is a model-issued request to execute a named tool.
type ToolCall struct {
	// ID correlates the call with its ToolResult.
	ID string

	// Name is the requested tool.
	Name string

	// Arguments are the structured parameters, decoded from the model's
	// JSON input.
	Arguments map[string]any
}

// ToolResult is the outcome of one executed tool call.
type ToolResult struct {
	// CallID matches the originating ToolCall.ID.
	CallID string

	// Content is the textual result handed back to the model.
	Content string

	// IsError marks results that report a tool failure. The model sees
	// the content either way and can recover conversationally.
	IsError bool
}

// ChatResponse is the model's reply to one Generate call.
type ChatResponse struct {
	// Text is the concatenated text content, empty when the model only
	// requested tools.
	Text string

	// ToolCalls are the tool invocations requested by this turn, in the
	// order the model issued them.
	ToolCalls []ToolCall

	// StopReason is the provider's stated reason for ending the turn
	// (e.g. "end_turn", "tool_use", "max_tokens").
	StopReason string
}
