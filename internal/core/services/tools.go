package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// toolSchemas declares the argument schema for every HR back-end
// operation. Arguments are validated locally; a malformed call is
// rejected with a SchemaError before anything reaches the wire.
var toolSchemas = map[string]map[string]any{
	domain.ToolBalanceGet: {
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"leave_type"},
		"properties": map[string]any{
			"leave_type": map[string]any{"type": "string", "enum": []any{"CL", "SL", "EL", "ML"}},
		},
	},
	domain.ToolLeaveApply: {
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"leave_type", "start_date", "end_date"},
		"properties": map[string]any{
			"leave_type": map[string]any{"type": "string", "enum": []any{"CL", "SL", "EL", "ML"}},
			"start_date": map[string]any{"type": "string", "format": "date"},
			"end_date":   map[string]any{"type": "string", "format": "date"},
			"reason":     map[string]any{"type": "string"},
		},
	},
	domain.ToolValidateRange: {
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"start_date", "end_date"},
		"properties": map[string]any{
			"start_date": map[string]any{"type": "string", "format": "date"},
			"end_date":   map[string]any{"type": "string", "format": "date"},
		},
	},
}

// ToolInvoker validates and dispatches tool calls to the HR back end.
// Every logical submission carries an idempotency key derived from the
// caller identity and turn, so a retry after a network timeout cannot
// file a duplicate leave request.
type ToolInvoker struct {
	client  driven.ToolClient
	timeout time.Duration
}

// NewToolInvoker creates a tool invoker. timeout <= 0 disables the
// per-call deadline.
func NewToolInvoker(client driven.ToolClient, timeout time.Duration) *ToolInvoker {
	return &ToolInvoker{client: client, timeout: timeout}
}

// IdempotencyKey derives the deduplication token for one logical
// submission.
func IdempotencyKey(userCtx domain.UserContext) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", userCtx.UserID, userCtx.SessionID, userCtx.TurnID)))
	return hex.EncodeToString(sum[:])[:32]
}

// Invoke validates arguments against the tool's declared schema and
// executes the call. Transient transport failures are retried once
// under the same idempotency key. Conflict responses are returned as a
// *domain.ConflictError carrying the structured alternative payload.
func (t *ToolInvoker) Invoke(
	ctx context.Context, toolName string, args map[string]any, userCtx domain.UserContext,
) (domain.ToolResult, error) {
	schema, ok := toolSchemas[toolName]
	if !ok {
		return domain.ToolResult{}, fmt.Errorf("invoke: unknown tool %q: %w", toolName, domain.ErrInvalidInput)
	}

	if err := validateArgs(toolName, schema, args); err != nil {
		return domain.ToolResult{}, err
	}

	call := driven.ToolCall{
		Tool:           toolName,
		Arguments:      args,
		IdempotencyKey: IdempotencyKey(userCtx),
	}

	callCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	resp, err := t.client.Call(callCtx, call)
	if err != nil && errors.Is(err, domain.ErrProviderTransient) && ctx.Err() == nil {
		logger.Warn("Tool %s transient failure, retrying under key %s: %v", toolName, call.IdempotencyKey, err)
		resp, err = t.client.Call(callCtx, call)
	}
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("call tool %s: %w", toolName, err)
	}

	switch resp.Status {
	case "ok":
		return domain.ToolResult{
			Tool:           toolName,
			Payload:        resp.Payload,
			IdempotencyKey: call.IdempotencyKey,
		}, nil
	case "conflict":
		conflict := decodeConflict(toolName, resp)
		logger.Info("Tool %s conflict: %s", toolName, conflict.Reason)
		return domain.ToolResult{}, &domain.ConflictError{Conflict: conflict}
	default:
		return domain.ToolResult{}, &domain.ToolError{Tool: toolName, Code: resp.Code, Message: resp.Message}
	}
}

// validateArgs checks args against a JSON schema.
func validateArgs(toolName string, schema map[string]any, args map[string]any) error {
	argBytes, err := json.Marshal(args)
	if err != nil {
		return &domain.SchemaError{Tool: toolName, Violations: []string{"arguments not serialisable: " + err.Error()}}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(argBytes))
	if err != nil {
		return &domain.SchemaError{Tool: toolName, Violations: []string{"schema validation error: " + err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &domain.SchemaError{Tool: toolName, Violations: violations}
}

// decodeConflict extracts the structured conflict payload from a
// conflict response.
func decodeConflict(toolName string, resp driven.ToolResponse) domain.ToolConflict {
	conflict := domain.ToolConflict{
		Tool:    toolName,
		Reason:  resp.Code,
		Message: resp.Message,
	}
	if resp.Payload == nil {
		return conflict
	}

	conflict.Conflicting = decodeRange(resp.Payload["conflicting"])
	if alts, ok := resp.Payload["alternatives"].([]any); ok {
		for _, alt := range alts {
			if r := decodeRange(alt); !r.Start.IsZero() {
				conflict.Alternatives = append(conflict.Alternatives, r)
			}
		}
	}
	return conflict
}

// decodeRange parses a {"start_date","end_date"} payload fragment.
func decodeRange(v any) domain.DateRange {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.DateRange{}
	}
	var r domain.DateRange
	if s, ok := m["start_date"].(string); ok {
		r.Start, _ = time.Parse("2006-01-02", s)
	}
	if s, ok := m["end_date"].(string); ok {
		r.End, _ = time.Parse("2006-01-02", s)
	}
	return r
}
