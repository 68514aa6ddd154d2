// Package domain defines the core business entities for hrdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - PolicyDocument: An ingested HR policy with frontmatter metadata
//   - Chunk: A retrievable unit of normalised policy text
//   - RetrievalResult: Ranked, cited evidence for one query
//   - ConversationState: Per-session intent and slot state
//   - RoutingDecision: Audit record of one model invocation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
