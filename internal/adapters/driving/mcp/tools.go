package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// PolicyQueryInput is the input schema for the answer_policy_query tool.
type PolicyQueryInput struct {
	Question string `json:"question" jsonschema:"the HR policy question to answer"`
	Locale   string `json:"locale,omitempty" jsonschema:"BCP 47 locale restricting which policies are searched"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of policy passages to retrieve (default 4)"`
}

// PolicyQueryOutput is the output schema for the answer_policy_query tool.
type PolicyQueryOutput struct {
	Answer        string           `json:"answer"`
	Citations     []CitationOutput `json:"citations,omitempty"`
	Confidence    float64          `json:"confidence"`
	LowConfidence bool             `json:"low_confidence"`
}

// CitationOutput represents a single citation.
type CitationOutput struct {
	PolicyID      string  `json:"policy_id"`
	SectionTitle  string  `json:"section_title,omitempty"`
	EffectiveDate string  `json:"effective_date"`
	Score         float64 `json:"score"`
}

// LeaveTurnInput is the input schema for the submit_leave_turn tool.
type LeaveTurnInput struct {
	SessionID string `json:"session_id" jsonschema:"conversation session identifier"`
	UserID    string `json:"user_id" jsonschema:"employee identifier"`
	Utterance string `json:"utterance" jsonschema:"the employee's message for this turn"`
}

// LeaveTurnOutput is the output schema for the submit_leave_turn tool.
type LeaveTurnOutput struct {
	Reply    string          `json:"reply"`
	Intent   string          `json:"intent"`
	Filed    bool            `json:"filed"`
	Conflict *ConflictOutput `json:"conflict,omitempty"`
}

// ConflictOutput represents a structured date conflict.
type ConflictOutput struct {
	Reason       string      `json:"reason"`
	Message      string      `json:"message"`
	Conflicting  *DateRange  `json:"conflicting,omitempty"`
	Alternatives []DateRange `json:"alternatives,omitempty"`
}

// DateRange is an inclusive date span.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IngestInput is the input schema for the ingest_policies tool.
type IngestInput struct {
	Dir string `json:"dir" jsonschema:"directory of policy markdown files to ingest"`
}

// IngestOutput is the output schema for the ingest_policies tool.
type IngestOutput struct {
	Ingested int               `json:"ingested"`
	Chunks   int               `json:"chunks"`
	Rejected map[string]string `json:"rejected,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer_policy_query",
		Description: "Answer an HR policy question with citations to the policy corpus",
	}, s.handlePolicyQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "submit_leave_turn",
		Description: "Process one turn of a leave-application conversation",
	}, s.handleLeaveTurn)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_policies",
			Description: "Ingest a directory of policy markdown files into the index",
		}, s.handleIngest)
	}
}

// handlePolicyQuery handles the answer_policy_query tool invocation.
func (s *Server) handlePolicyQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PolicyQueryInput,
) (*mcp.CallToolResult, PolicyQueryOutput, error) {
	answer, err := s.ports.Assistant.AnswerPolicyQuery(ctx, input.Question, input.Locale, input.TopK)
	if err != nil {
		return nil, PolicyQueryOutput{}, err
	}

	output := PolicyQueryOutput{
		Answer:        answer.Answer,
		Confidence:    answer.Confidence,
		LowConfidence: answer.LowConfidence,
	}
	for _, c := range answer.Citations {
		output.Citations = append(output.Citations, CitationOutput{
			PolicyID:      c.PolicyID,
			SectionTitle:  c.SectionTitle,
			EffectiveDate: c.EffectiveDate.Format("2006-01-02"),
			Score:         c.Score,
		})
	}

	return nil, output, nil
}

// handleLeaveTurn handles the submit_leave_turn tool invocation.
func (s *Server) handleLeaveTurn(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LeaveTurnInput,
) (*mcp.CallToolResult, LeaveTurnOutput, error) {
	result, err := s.ports.Assistant.SubmitLeaveTurn(ctx, input.SessionID, input.UserID, input.Utterance)
	if err != nil {
		return nil, LeaveTurnOutput{}, err
	}

	output := LeaveTurnOutput{
		Reply:  result.Reply,
		Intent: string(result.State.Intent),
		Filed:  result.Result != nil,
	}
	if result.Conflict != nil {
		output.Conflict = conflictOutput(*result.Conflict)
	}

	return nil, output, nil
}

func conflictOutput(conflict domain.ToolConflict) *ConflictOutput {
	out := &ConflictOutput{
		Reason:  conflict.Reason,
		Message: conflict.Message,
	}
	if !conflict.Conflicting.Start.IsZero() {
		out.Conflicting = &DateRange{
			Start: conflict.Conflicting.Start.Format("2006-01-02"),
			End:   conflict.Conflicting.End.Format("2006-01-02"),
		}
	}
	for _, alt := range conflict.Alternatives {
		out.Alternatives = append(out.Alternatives, DateRange{
			Start: alt.Start.Format("2006-01-02"),
			End:   alt.End.Format("2006-01-02"),
		})
	}
	return out
}

// handleIngest handles the ingest_policies tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	report, err := s.ports.Ingest.IngestDir(ctx, input.Dir)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	output := IngestOutput{
		Ingested: report.Ingested,
		Chunks:   report.Chunks,
	}
	if len(report.Rejected) > 0 {
		output.Rejected = make(map[string]string, len(report.Rejected))
		for path, rejErr := range report.Rejected {
			output.Rejected[path] = rejErr.Error()
		}
	}

	return nil, output, nil
}
