package ollama

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

	return NewChatService(Config{BaseURL: server.URL}), &bodies
}

func TestChatService_Generate_RequestShape(t *testing.T) {
	service, bodies := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "hello"}, "done": true, "done_reason": "stop"}`))
	})

	resp, err := service.Generate(context.Background(), driven.ChatRequest{
		System:      "system prompt",
		Messages:    []driven.ChatMessage{{Role: driven.RoleUser, Content: "hi"}},
		MaxTokens:   800,
		Temperature: 0,
		Tools: []driven.ToolDefinition{{
			Name:        "search_course_content",
			Description: "Search course materials",
			InputSchema: map[string]any{"type": "object"},
		}},
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)

	require.Len(t, *bodies, 1)
	body := (*bodies)[0]
	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, false, body["stream"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2, "system prompt becomes the leading message")
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "system prompt", first["content"])

	opts := body["options"].(map[string]any)
	assert.Equal(t, float64(800), opts["num_predict"])
	assert.Equal(t, float64(0), opts["temperature"], "temperature zero must be sent, not omitted")

	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	wrapped := tools[0].(map[string]any)
	assert.Equal(t, "function", wrapped["type"])
	fn := wrapped["function"].(map[string]any)
	assert.Equal(t, "search_course_content", fn["name"])
}

func TestChatService_Generate_DecodesToolCalls(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"function": {"name": "search_course_content", "arguments": {"query": "chunking"}}},
					{"function": {"name": "get_course_outline", "arguments": {"course_title": "MCP"}}}
				]
			},
			"done": true,
			"done_reason": "stop"
		}`))
	})

	resp, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
	})

	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "call_0", resp.ToolCalls[0].ID, "positional ids substitute for Ollama's missing call ids")
	assert.Equal(t, "search_course_content", resp.ToolCalls[0].Name)
	assert.Equal(t, "chunking", resp.ToolCalls[0].Arguments["query"])
	assert.Equal(t, "call_1", resp.ToolCalls[1].ID)
}

func TestChatService_Generate_ToolResultsBecomeToolMessages(t *testing.T) {
	service, bodies := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "done"}, "done": true, "done_reason": "stop"}`))
	})

	_, err := service.Generate(context.Background(), driven.ChatRequest{
		Messages: []driven.ChatMessage{
			{Role: driven.RoleUser, Content: "q"},
			{Role: driven.RoleAssistant, ToolCalls: []driven.ToolCall{{
				ID: "call_0", Name: "search_course_content", Arguments: map[string]any{"query": "x"},
			}}},
			{Role: driven.RoleUser, ToolResults: []driven.ToolResult{{
				CallID: "call_0", Content: "search output",
			}}},
		},
	})

	require.NoError(t, err)
	messages := (*bodies)[0]["messages"].([]any)
	require.Len(t, messages, 3)

	assistant := messages[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	assert.NotEmpty(t, assistant["tool_calls"])

	toolMsg := messages[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "search output", toolMsg["content"])
}

func TestChatService_Generate_ErrorClassification(t *testing.T) {
	t.Run("server error is transient", func(t *testing.T) {
		service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model is loading", http.StatusInternalServerError)
		})

		_, err := service.Generate(context.Background(), driven.ChatRequest{
			Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
		})

		require.Error(t, err)
		assert.True(t, domain.IsTransient(err))
	})

	t.Run("unknown model is fatal", func(t *testing.T) {
		service, _ := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error": "model not found"}`, http.StatusNotFound)
		})

		_, err := service.Generate(context.Background(), driven.ChatRequest{
			Messages: []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}},
		})

		require.Error(t, err)
		assert.False(t, domain.IsTransient(err))
	})
}
