package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

// newTestService points a service at a stub API and captures each request
// body for assertions.
func newTestService(t *testing.T, handler http.HandlerFunc) (*ChatService, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			bodies = append(bodies, body)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	service, err := NewChatService(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return service, &bodies
}

func respondJSON(t *testing.T, w http.ResponseWriter, status int, payload string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
}

func TestNewChatService(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewChatService(Config{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("applies defaults", func(t *testing.T) {
		service, err := NewChatService(Config{APIKey: "k"})

		require.NoError(t, err)
		assert.Equal(t, DefaultModel, service.ModelName())
		assert.Equal(t, DefaultBaseURL, service.baseURL)
	})
}

func TestChatService_Generate_TextResponse(t *testing.T) {
	service, bodies := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		respondJSON(t, w, http.StatusOK, `{
			"choices": [{
				"message": {"content": "RAG retrieves before it generates."},
				"finish_reason": "stop"
			}]
		}`)
	})

	resp, err := service.Generate(context.Background(), driven.ChatRequest{
		System:      "You answer questions about courses.",
		Messages:    []driven.ChatMessage{{Role: driven.RoleUser, Content: "What is RAG?"}},
		MaxTokens:   800,
		Temperature: 0,
	})

	require.NoError(t, err)
	assert.Equal(t, "RAG retrieves before it generates.", resp.Text)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "stop", resp.StopReason)

	require.Len(t, *bodies, 1)
	body := (*bodies)[0]
	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, float64(800), body["max_tokens"])
	assert.Equal(t, float64(0), body["temperature"], "temperature zero must be sent, not omitted")
	assert.NotContains(t, body, "tools")

	messages := body["messages"].([]any)
	require.Len(t, messages, 2, "system prompt becomes the leading message")
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "You answer questions about courses.", system["content"])
}

func TestChatService_Generate_DeclaresTools(t *testing.T) {
	service, bodies := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusOK, `{
			"choices": [{"message": {"content": "ok"}, "finish_reason": "stop"}]
		}`)
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "question"}},
		Tools: []driven.ToolDefinition{{
			Name:        "search_course_content",
			Description: "Search course materials",
			InputSchema: map[string]any{"type": "object"},
		}},
	})

	require.NoError(t, err)
	require.Len(t, *bodies, 1)
	body := (*bodies)[0]

	tools, ok := body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])
	fn := tool["function"].(map[string]any)
	assert.Equal(t, "search_course_content", fn["name"])
	assert.Equal(t, "Search course materials", fn["description"])
	assert.Equal(t, map[string]any{"type": "object"}, fn["parameters"])

	assert.Equal(t, "auto", body["tool_choice"])
}

func TestChatService_Generate_ToolCallResponse(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusOK, `{
			"choices": [{
				"message": {
					"content": "",
					"tool_calls": [
						{"id": "call_1", "type": "function", "function":
							{"name": "search_course_content",
							 "arguments": "{\"query\": \"embeddings\", \"lesson_number\": 2}"}},
						{"id": "call_2", "type": "function", "function":
							{"name": "get_course_outline",
							 "arguments": "{\"course_title\": \"MCP\"}"}}
					]
				},
				"finish_reason": "tool_calls"
			}]
		}`)
	})

	resp, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "question"}},
	})

	require.NoError(t, err)
	assert.Empty(t, resp.Text)
	assert.Equal(t, "tool_calls", resp.StopReason)

	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "search_course_content", resp.ToolCalls[0].Name)
	assert.Equal(t, "embeddings", resp.ToolCalls[0].Arguments["query"])
	assert.Equal(t, float64(2), resp.ToolCalls[0].Arguments["lesson_number"])
	assert.Equal(t, "call_2", resp.ToolCalls[1].ID)
	assert.Equal(t, "MCP", resp.ToolCalls[1].Arguments["course_title"])
}

func TestChatService_Generate_ToolTurnSerialisation(t *testing.T) {
	service, bodies := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusOK, `{
			"choices": [{"message": {"content": "final"}, "finish_reason": "stop"}]
		}`)
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{
			{Role: driven.RoleUser, Content: "question"},
			{Role: driven.RoleAssistant, ToolCalls: []driven.ToolCall{{
				ID:        "call_1",
				Name:      "search_course_content",
				Arguments: map[string]any{"query": "chunking"},
			}}},
			{Role: driven.RoleUser, ToolResults: []driven.ToolResult{{
				CallID:  "call_1",
				Content: "[Course - Lesson 1]\nChunking splits text.",
			}}},
		},
	})

	require.NoError(t, err)
	require.Len(t, *bodies, 1)
	messages := (*bodies)[0]["messages"].([]any)
	require.Len(t, messages, 3)

	assistant := messages[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 1)
	call := calls[0].(map[string]any)
	assert.Equal(t, "call_1", call["id"])
	assert.Equal(t, "function", call["type"])
	fn := call["function"].(map[string]any)
	assert.Equal(t, "search_course_content", fn["name"])
	assert.JSONEq(t, `{"query": "chunking"}`, fn["arguments"].(string),
		"arguments travel as a JSON-encoded string")

	result := messages[2].(map[string]any)
	assert.Equal(t, "tool", result["role"])
	assert.Equal(t, "call_1", result["tool_call_id"])
	assert.Equal(t, "[Course - Lesson 1]\nChunking splits text.", result["content"])
}

func TestChatService_Generate_ErrorResultIsPrefixed(t *testing.T) {
	service, bodies := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusOK, `{
			"choices": [{"message": {"content": "ok"}, "finish_reason": "stop"}]
		}`)
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{
			{Role: driven.RoleUser, ToolResults: []driven.ToolResult{{
				CallID:  "call_1",
				Content: "course not found",
				IsError: true,
			}}},
		},
	})

	require.NoError(t, err)
	messages := (*bodies)[0]["messages"].([]any)
	result := messages[0].(map[string]any)
	assert.Equal(t, "Error: course not found", result["content"],
		"the wire has no is_error field, so failures are marked in the text")
}

func TestChatService_Generate_RateLimitedIsTransient(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusTooManyRequests, `{"error": {"type": "rate_limit_error", "message": "rate limited"}}`)
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
	})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChatService_Generate_ServerErrorIsTransient(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusInternalServerError, `{"error": {"type": "api_error", "message": "overloaded"}}`)
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
	})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestChatService_Generate_BadRequestIsFatal(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusBadRequest, `{"error": {"type": "invalid_request_error", "message": "max_tokens is too large"}}`)
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
	})

	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.Contains(t, err.Error(), "max_tokens is too large")
}

func TestChatService_Generate_MalformedArguments(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, http.StatusOK, `{
			"choices": [{
				"message": {"content": "", "tool_calls": [
					{"id": "call_1", "type": "function", "function":
						{"name": "search_course_content", "arguments": "{not json"}}
				]},
				"finish_reason": "tool_calls"
			}]
		}`)
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode tool arguments")
}

func TestChatService_Ping(t *testing.T) {
	t.Run("succeeds on 200", func(t *testing.T) {
		service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models", r.URL.Path)
			respondJSON(t, w, http.StatusOK, `{"data": []}`)
		})

		assert.NoError(t, service.Ping(context.Background()))
	})

	t.Run("fails on auth error", func(t *testing.T) {
		service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			respondJSON(t, w, http.StatusUnauthorized, `{"error": {"message": "invalid api key"}}`)
		})

		err := service.Ping(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
}
