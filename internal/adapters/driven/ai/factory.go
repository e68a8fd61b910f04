// Package ai builds the embedding and chat adapters named by the
// configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/lectern-ai/lectern/internal/adapters/driven/config/file"
	ollamaembed "github.com/lectern-ai/lectern/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/lectern-ai/lectern/internal/adapters/driven/embedding/openai"
	"github.com/lectern-ai/lectern/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/lectern-ai/lectern/internal/adapters/driven/llm/ollama"
	openaillm "github.com/lectern-ai/lectern/internal/adapters/driven/llm/openai"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

// Provider names accepted in the config file.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// pingTimeout is the maximum time to wait for service connectivity
// validation.
const pingTimeout = 5 * time.Second

// NewEmbeddingService builds the embedding adapter selected by
// cfg.Embedding.Provider.
func NewEmbeddingService(cfg file.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf(
				"embedding provider openai: no API key; run 'lectern auth set openai' or set %s",
				file.EnvOpenAIAPIKey)
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey: cfg.OpenAI.APIKey,
			Model:  cfg.OpenAI.EmbeddingModel,
		})

	case ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.EmbeddingModel,
		}), nil

	case ProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not serve embeddings, use openai or ollama")

	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: want openai or ollama",
			cfg.Embedding.Provider)
	}
}

// NewChatService builds the chat adapter selected by
// cfg.Assistant.Provider.
func NewChatService(cfg file.Config) (driven.ChatService, error) {
	switch cfg.Assistant.Provider {
	case ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf(
				"assistant provider anthropic: no API key; run 'lectern auth set anthropic' or set %s",
				file.EnvAnthropicAPIKey)
		}
		return anthropic.NewChatService(anthropic.Config{
			APIKey: cfg.Anthropic.APIKey,
			Model:  cfg.Anthropic.Model,
		})

	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf(
				"assistant provider openai: no API key; run 'lectern auth set openai' or set %s",
				file.EnvOpenAIAPIKey)
		}
		return openaillm.NewChatService(openaillm.Config{
			APIKey: cfg.OpenAI.APIKey,
			Model:  cfg.OpenAI.ChatModel,
		})

	case ProviderOllama:
		return ollamallm.NewChatService(ollamallm.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.ChatModel,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported assistant provider %q: want anthropic, openai or ollama",
			cfg.Assistant.Provider)
	}
}

// ValidateEmbedding builds the configured embedding adapter and verifies
// it is reachable. Long-running commands call it before starting work so
// a bad credential surfaces immediately instead of on the first embed.
func ValidateEmbedding(ctx context.Context, cfg file.Config) error {
	svc, err := NewEmbeddingService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		return fmt.Errorf("embedding provider %s unreachable: %w", cfg.Embedding.Provider, err)
	}
	return nil
}

// ValidateChat builds the configured chat adapter and verifies it is
// reachable.
func ValidateChat(ctx context.Context, cfg file.Config) error {
	svc, err := NewChatService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		return fmt.Errorf("assistant provider %s unreachable: %w", cfg.Assistant.Provider, err)
	}
	return nil
}
