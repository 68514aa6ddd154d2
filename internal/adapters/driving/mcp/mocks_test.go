package mcp

import (
	"context"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driving"
)

// mockAssistant is a mock implementation of driving.Assistant.
type mockAssistant struct {
	answer driving.PolicyAnswer
	turn   driving.LeaveTurnResult
	err    error
}

func (m *mockAssistant) AnswerPolicyQuery(
	_ context.Context,
	_ string,
	_ string,
	_ int,
) (driving.PolicyAnswer, error) {
	return m.answer, m.err
}

func (m *mockAssistant) SubmitLeaveTurn(
	_ context.Context,
	_, _, _ string,
) (driving.LeaveTurnResult, error) {
	return m.turn, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	report driving.IngestReport
	doc    *domain.PolicyDocument
	err    error
}

func (m *mockIngestService) IngestDir(_ context.Context, _ string) (driving.IngestReport, error) {
	return m.report, m.err
}

func (m *mockIngestService) IngestFile(_ context.Context, _ string) (*domain.PolicyDocument, error) {
	return m.doc, m.err
}

func (m *mockIngestService) Remove(_ context.Context, _ string) error {
	return m.err
}

// mockDocumentStore is a mock implementation of driven.DocumentStore.
type mockDocumentStore struct {
	documents []domain.PolicyDocument
	document  *domain.PolicyDocument
	err       error
}

func (m *mockDocumentStore) SaveDocument(_ context.Context, _ *domain.PolicyDocument) error {
	return m.err
}

func (m *mockDocumentStore) SaveChunks(_ context.Context, _ []domain.Chunk) error {
	return m.err
}

func (m *mockDocumentStore) GetDocument(_ context.Context, _ string) (*domain.PolicyDocument, error) {
	return m.document, m.err
}

func (m *mockDocumentStore) GetDocumentByPolicyID(_ context.Context, _ string) (*domain.PolicyDocument, error) {
	return m.document, m.err
}

func (m *mockDocumentStore) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockDocumentStore) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentStore) ListDocuments(_ context.Context) ([]domain.PolicyDocument, error) {
	return m.documents, m.err
}
