// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Policy document and chunk persistence
//   - VectorIndex: Embedding storage and similarity search
//   - EmbeddingService: Generates vector embeddings
//   - LLMProvider: Model completions with token usage reporting
//   - SessionStore: Conversation state persistence
//   - TokenCounter: Token estimation for chunking and budget preflight
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Guardrail: Content-policy gate. Without it, answers pass through.
//   - CompletionCache: Deterministic-prompt cache. Without it, every
//     request reaches a provider.
//   - ToolClient: HR back end. Without it, leave filing is disabled.
//   - AuditSink: Routing decision telemetry. Without it, decisions are
//     logged and dropped.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
