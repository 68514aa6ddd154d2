package mcp

import (
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driving"
)

// Ports aggregates the port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Assistant answers policy questions and processes leave turns.
	Assistant driving.Assistant

	// Ingest manages the policy corpus. Optional; ingest tooling is
	// hidden when absent.
	Ingest driving.IngestService

	// Documents backs the policy resources. Optional.
	Documents driven.DocumentStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistant
	}
	// Ingest and Documents are optional.
	return nil
}
