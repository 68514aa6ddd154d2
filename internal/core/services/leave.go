package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// DefaultLeaveExtractionPrompt instructs the model to emit only the
// slots the utterance actually mentions; empty strings keep previously
// confirmed values intact when the router merges.
const DefaultLeaveExtractionPrompt = `You extract structured leave-application fields from an employee message.
Reply with a single JSON object and nothing else:
{"leave_type":"","start_date":"","end_date":"","reason":""}
Rules:
- leave_type is one of CL (casual), SL (sick), EL (earned), ML (maternity), or "" if not stated.
- Dates are YYYY-MM-DD. end_date is the last day of leave, inclusive:
  "2 days from 15 Nov" means start_date the 15th and end_date the 16th.
- A single-day request has start_date equal to end_date.
- Resolve relative dates against today's date given in the message.
- Use "" for every field the message does not state. Never guess.`

// extractedSlots mirrors the extraction JSON.
type extractedSlots struct {
	LeaveType string `json:"leave_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// ExtractLeaveSlots runs the deterministic slot-extraction sub-request
// through the governor. Identical utterances hit the prompt cache and
// never reach a provider twice.
func ExtractLeaveSlots(
	ctx context.Context, governor *Governor, system, utterance string, today time.Time,
) (domain.LeaveSlots, error) {
	if system == "" {
		system = DefaultLeaveExtractionPrompt
	}
	spec := PromptSpec{
		System:      system,
		User:        fmt.Sprintf("Today is %s.\nMessage: %s", today.Format("2006-01-02"), utterance),
		Temperature: 0,
		JSONMode:    true,
	}

	completion, err := governor.Complete(ctx, domain.RouteLeaveApplication, spec, 0)
	if err != nil {
		return domain.LeaveSlots{}, fmt.Errorf("extract leave slots: %w", err)
	}

	return parseSlots(completion.Text)
}

// parseSlots decodes the extraction JSON into domain slots.
func parseSlots(text string) (domain.LeaveSlots, error) {
	payload := extractJSONObject(text)
	if payload == "" {
		return domain.LeaveSlots{}, fmt.Errorf("parse slots: no JSON object in %q: %w", text, domain.ErrInvalidInput)
	}

	var raw extractedSlots
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return domain.LeaveSlots{}, fmt.Errorf("parse slots: %w", err)
	}

	var slots domain.LeaveSlots
	switch strings.ToUpper(strings.TrimSpace(raw.LeaveType)) {
	case "CL":
		slots.Type = domain.LeaveCasual
	case "SL":
		slots.Type = domain.LeaveSick
	case "EL":
		slots.Type = domain.LeaveEarned
	case "ML":
		slots.Type = domain.LeaveMaternity
	}

	var err error
	if slots.StartDate, err = parseSlotDate(raw.StartDate); err != nil {
		return domain.LeaveSlots{}, fmt.Errorf("parse slots: start_date: %w", err)
	}
	if slots.EndDate, err = parseSlotDate(raw.EndDate); err != nil {
		return domain.LeaveSlots{}, fmt.Errorf("parse slots: end_date: %w", err)
	}
	slots.Reason = strings.TrimSpace(raw.Reason)

	return slots, nil
}

// parseSlotDate parses an ISO date, treating "" as unset.
func parseSlotDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", value, domain.ErrInvalidInput)
	}
	return t.UTC(), nil
}

// extractJSONObject returns the first balanced JSON object in text.
// Models occasionally wrap the payload in prose or code fences.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// missingSlotPrompt names the slots still required from the user.
func missingSlotPrompt(slots domain.LeaveSlots) string {
	var missing []string
	if slots.Type == "" {
		missing = append(missing, "the leave type (casual, sick, earned or maternity)")
	}
	if slots.StartDate.IsZero() {
		missing = append(missing, "the start date")
	}
	if slots.EndDate.IsZero() {
		missing = append(missing, "the end date")
	}
	return "To file your leave request I still need " + strings.Join(missing, " and ") + "."
}
