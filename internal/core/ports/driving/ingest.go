package driving

import (
	"context"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Ingested is the number of documents successfully indexed.
	Ingested int

	// Chunks is the total number of chunks produced.
	Chunks int

	// Rejected maps source paths to the rejection error, typically a
	// *domain.MetadataError. Rejected documents are never partially
	// ingested.
	Rejected map[string]error
}

// IngestService turns raw policy files into indexed, embedded chunks.
type IngestService interface {
	// IngestDir ingests every policy file in a directory.
	IngestDir(ctx context.Context, dir string) (IngestReport, error)

	// IngestFile ingests a single policy file. Re-ingesting a file with
	// the same policy ID replaces the previous version atomically.
	IngestFile(ctx context.Context, path string) (*domain.PolicyDocument, error)

	// Remove deletes a document and all its index entries.
	Remove(ctx context.Context, documentID string) error
}
