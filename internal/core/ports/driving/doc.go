// Package driving defines the interfaces through which external actors
// drive the core (the "primary" ports in hexagonal architecture).
//
// Driving adapters (CLI, MCP server) depend on these interfaces; core
// services implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package, driven ports
package driving
