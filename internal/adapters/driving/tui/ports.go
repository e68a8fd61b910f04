// Package tui provides the interactive chat terminal interface for lectern.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/lectern-ai/lectern/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Assistant answers questions over the ingested corpus.
	Assistant driving.AssistantService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(assistant driving.AssistantService) *Ports {
	return &Ports{
		Assistant: assistant,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistantService
	}
	return nil
}
