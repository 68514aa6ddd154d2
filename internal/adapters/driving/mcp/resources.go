package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for hrdesk resources.
const uriScheme = "hrdesk://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing the policy corpus.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "policies",
		Name:        "policies",
		Description: "List of all ingested HR policy documents",
		MIMEType:    "application/json",
	}, s.handlePoliciesResource)

	// Template for the full text of one policy document.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "policies/{documentId}",
		Name:        "policy-content",
		Description: "Full text of a specific policy document",
		MIMEType:    "text/plain",
	}, s.handlePolicyContentResource)
}

// handlePoliciesResource returns a list of all ingested policies.
func (s *Server) handlePoliciesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	docs, err := s.ports.Documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}

	type policyInfo struct {
		ID            string `json:"id"`
		PolicyID      string `json:"policy_id"`
		Title         string `json:"title"`
		Category      string `json:"category"`
		EffectiveDate string `json:"effective_date"`
		Locale        string `json:"locale,omitempty"`
	}

	infos := make([]policyInfo, len(docs))
	for i, doc := range docs {
		infos[i] = policyInfo{
			ID:            doc.ID,
			PolicyID:      doc.PolicyID,
			Title:         doc.Title,
			Category:      doc.Category,
			EffectiveDate: doc.EffectiveDate.Format("2006-01-02"),
			Locale:        doc.Locale,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling policies: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePolicyContentResource returns the full text of one policy.
func (s *Server) handlePolicyContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	documentID := extractDocumentID(req.Params.URI)
	if documentID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Content,
		}},
	}, nil
}

// extractDocumentID parses hrdesk://policies/{documentId} URIs.
func extractDocumentID(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+"policies/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
