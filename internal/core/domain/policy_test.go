package domain

import "testing"

func TestChunkID(t *testing.T) {
	id := ChunkID("POL-001", 0)
	if len(id) != 16 {
		t.Errorf("expected 16-character chunk ID, got %d characters", len(id))
	}
	if id != ChunkID("POL-001", 0) {
		t.Error("expected chunk ID to be deterministic")
	}
	if id == ChunkID("POL-001", 1) {
		t.Error("expected offset to change the chunk ID")
	}
	if id == ChunkID("POL-002", 0) {
		t.Error("expected document to change the chunk ID")
	}
}

func TestRoute_Valid(t *testing.T) {
	if !RoutePolicySearch.Valid() || !RouteLeaveApplication.Valid() {
		t.Error("expected known routes to be valid")
	}
	if Route("weather").Valid() {
		t.Error("expected unknown route to be invalid")
	}
}

func TestTokenUsage_Total(t *testing.T) {
	usage := TokenUsage{InputTokens: 120, OutputTokens: 40}
	if usage.Total() != 160 {
		t.Errorf("expected total 160, got %d", usage.Total())
	}
}

func TestRetrievalResult_TopCitations(t *testing.T) {
	result := RetrievalResult{Chunks: []RetrievedChunk{
		{Citation: Citation{PolicyID: "POL-001"}},
		{Citation: Citation{PolicyID: "POL-002"}},
	}}
	citations := result.TopCitations()
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	if citations[0].PolicyID != "POL-001" || citations[1].PolicyID != "POL-002" {
		t.Errorf("expected citations in rank order, got %+v", citations)
	}
}
