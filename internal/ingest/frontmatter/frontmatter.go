// Package frontmatter extracts and validates YAML frontmatter from
// policy documents.
//
// A policy file carries its metadata between leading "---" fences:
//
//	---
//	policy_id: POL-001
//	effective_date: 2025-01-01
//	last_updated: 2025-06-01
//	department: HR
//	category: leave
//	---
//
// A document with missing or unparsable required fields is rejected as
// a whole with a *domain.MetadataError naming the field; it is never
// partially ingested.
package frontmatter

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

const fence = "---"

// dateLayouts are the accepted frontmatter date formats.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// raw mirrors the YAML frontmatter block.
type raw struct {
	PolicyID      string `yaml:"policy_id"`
	Title         string `yaml:"title"`
	EffectiveDate string `yaml:"effective_date"`
	LastUpdated   string `yaml:"last_updated"`
	Department    string `yaml:"department"`
	Category      string `yaml:"category"`
	Locale        string `yaml:"locale"`
}

// Metadata is the validated frontmatter of a policy document.
type Metadata struct {
	PolicyID      string
	Title         string
	EffectiveDate time.Time
	LastUpdated   time.Time
	Department    string
	Category      string
	Locale        string
}

// Parse splits a policy file into validated metadata and normalised
// body text. path is used only for error reporting.
func Parse(path, content string) (Metadata, string, error) {
	content = normalise(content)

	block, body, ok := splitFrontmatter(content)
	if !ok {
		return Metadata{}, "", &domain.MetadataError{
			Path: path, Field: "frontmatter", Reason: "missing frontmatter block",
		}
	}

	var r raw
	if err := yaml.Unmarshal([]byte(block), &r); err != nil {
		return Metadata{}, "", &domain.MetadataError{
			Path: path, Field: "frontmatter", Reason: "invalid YAML: " + err.Error(),
		}
	}

	meta, err := validate(path, r)
	if err != nil {
		return Metadata{}, "", err
	}
	return meta, body, nil
}

// ParseSidecar parses a standalone YAML metadata file, used for
// formats that cannot carry a frontmatter block of their own (PDF
// policies ship a sidecar next to the binary file). The same fields
// and validation rules apply as for an inline block. path is used only
// for error reporting.
func ParseSidecar(path, content string) (Metadata, error) {
	var r raw
	if err := yaml.Unmarshal([]byte(normalise(content)), &r); err != nil {
		return Metadata{}, &domain.MetadataError{
			Path: path, Field: "sidecar", Reason: "invalid YAML: " + err.Error(),
		}
	}
	return validate(path, r)
}

// validate checks required fields and parses dates.
func validate(path string, r raw) (Metadata, error) {
	meta := Metadata{
		PolicyID:   strings.TrimSpace(r.PolicyID),
		Title:      strings.TrimSpace(r.Title),
		Department: strings.TrimSpace(r.Department),
		Category:   strings.TrimSpace(r.Category),
		Locale:     strings.TrimSpace(r.Locale),
	}

	for field, value := range map[string]string{
		"policy_id":  meta.PolicyID,
		"department": meta.Department,
		"category":   meta.Category,
	} {
		if value == "" {
			return Metadata{}, &domain.MetadataError{
				Path: path, Field: field, Reason: "required field is missing",
			}
		}
	}

	var err error
	if meta.EffectiveDate, err = parseDate(r.EffectiveDate); err != nil {
		return Metadata{}, &domain.MetadataError{
			Path: path, Field: "effective_date", Reason: err.Error(),
		}
	}
	if meta.LastUpdated, err = parseDate(r.LastUpdated); err != nil {
		return Metadata{}, &domain.MetadataError{
			Path: path, Field: "last_updated", Reason: err.Error(),
		}
	}

	return meta, nil
}

// splitFrontmatter separates the fenced YAML block from the body.
func splitFrontmatter(content string) (block, body string, ok bool) {
	if !strings.HasPrefix(content, fence+"\n") {
		return "", "", false
	}
	rest := content[len(fence)+1:]
	end := strings.Index(rest, "\n"+fence)
	if end < 0 {
		return "", "", false
	}
	block = rest[:end]
	body = rest[end+len(fence)+1:]
	body = strings.TrimPrefix(body, "\n")
	return block, body, true
}

// parseDate accepts ISO dates or RFC 3339 timestamps.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errMissing
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errBadDate(value)
}

var errMissing = strError("required field is missing")

func errBadDate(value string) error {
	return strError("invalid date " + value + ", expected YYYY-MM-DD")
}

type strError string

func (e strError) Error() string { return string(e) }

// normalise converts line endings to LF.
func normalise(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}
