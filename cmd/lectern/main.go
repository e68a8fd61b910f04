// Command lectern is the course materials assistant. It ingests course
// transcripts into a searchable library and answers questions about them
// through a CLI, a chat TUI, and an MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lectern-ai/lectern/internal/adapters/driven/ai"
	"github.com/lectern-ai/lectern/internal/adapters/driven/config/file"
	"github.com/lectern-ai/lectern/internal/adapters/driven/storage/memory"
	"github.com/lectern-ai/lectern/internal/adapters/driven/storage/sqlite"
	"github.com/lectern-ai/lectern/internal/adapters/driving/cli"
	"github.com/lectern-ai/lectern/internal/chunker"
	"github.com/lectern-ai/lectern/internal/core/services"
	"github.com/lectern-ai/lectern/internal/core/tools"
	"github.com/lectern-ai/lectern/internal/logger"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetInitializer(buildServices)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildServices assembles the service graph from the configuration. The
// library side is required; the assistant side is optional so library
// commands keep working when no chat credential is configured.
func buildServices(command, configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = file.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := file.Load(configPath)
	if err != nil {
		return err
	}
	cli.SetConfig(cfg)

	embedder, err := ai.NewEmbeddingService(cfg)
	if err != nil {
		return fmt.Errorf("configuring embeddings: %w", err)
	}

	store, err := sqlite.NewStore(cfg.Library.DataDir, embedder)
	if err != nil {
		return fmt.Errorf("opening library index: %w", err)
	}

	library := services.NewLibraryService(store, chunker.New(
		chunker.WithBudget(cfg.Library.ChunkSize),
		chunker.WithOverlap(cfg.Library.ChunkOverlap),
	))
	svcs := cli.Services{Library: library}

	chat, err := ai.NewChatService(cfg)
	if err != nil {
		logger.Warn("assistant disabled: %v", err)
	} else {
		registry := tools.NewRegistry()
		if err := registry.Register(tools.NewContentSearch(store, cfg.Library.MaxResults)); err != nil {
			return err
		}
		if err := registry.Register(tools.NewOutline(store)); err != nil {
			return err
		}
		sessions := memory.NewSessionStore(cfg.Assistant.MaxHistory)
		svcs.Assistant = services.NewAssistantService(chat, registry, sessions)
	}

	cli.SetServices(svcs)

	return preflight(command, cfg)
}

// preflight pings the provider a long-running command depends on, so a bad
// credential surfaces before the terminal is taken over or the loop starts.
// One-shot commands skip it and let the first real call report.
func preflight(command string, cfg file.Config) error {
	switch command {
	case "chat":
		return ai.ValidateChat(context.Background(), cfg)
	case "watch", "mcp":
		return ai.ValidateEmbedding(context.Background(), cfg)
	default:
		return nil
	}
}
