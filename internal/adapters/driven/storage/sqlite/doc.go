// Package sqlite provides durable metadata storage backed by SQLite.
// One database file holds policy documents, their chunks, and
// conversation session state; the vector index lives elsewhere.
package sqlite
