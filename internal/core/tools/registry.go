package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
	"github.com/lectern-ai/lectern/internal/logger"
)

// Tool is one model-callable capability. Execute returns the textual
// result for the model plus any citation sources the call produced.
// Recoverable conditions (an unresolved course, an empty search) are
// returned as result text, not errors; errors are reserved for failures
// the tool cannot phrase for the user (backend unreachable, bad params).
type Tool interface {
	// Definition declares the tool to the model.
	Definition() driven.ToolDefinition

	// Execute runs the tool with the model-supplied arguments.
	Execute(ctx context.Context, args map[string]any) (string, []domain.Source, error)
}

// Registry maps tool names to handlers and stages citation sources across
// executions. Sources persist until ResetSources so the orchestrator can
// collect them after the model's final answer; it must reset after each
// completed exchange to prevent citation leakage across answers.
type Registry struct {
	mu      sync.Mutex
	tools   map[string]Tool
	order   []string
	sources []domain.Source
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Registering a name again replaces the handler and
// keeps its original declaration position.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("register tool: %w: definition has no name", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	return nil
}

// Definitions exports every registered declaration in registration order.
func (r *Registry) Definitions() []driven.ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]driven.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool and stages any sources it produced.
// An unregistered name is an error, never a silent no-op.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.Lock()
	tool, ok := r.tools[name]
	r.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("execute %q: %w", name, domain.ErrToolNotFound)
	}

	logger.Debug("Executing tool %q with args %v", name, args)
	text, sources, err := tool.Execute(ctx, args)
	if err != nil {
		return "", fmt.Errorf("execute %q: %w", name, err)
	}

	if len(sources) > 0 {
		r.mu.Lock()
		r.sources = append(r.sources, sources...)
		r.mu.Unlock()
		logger.Debug("Tool %q staged %d sources", name, len(sources))
	}

	return text, nil
}

// Sources returns the staged citations in execution order.
func (r *Registry) Sources() []domain.Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ResetSources discards all staged citations.
func (r *Registry) ResetSources() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = nil
}
