// Package pgvector provides a PostgreSQL-backed vector index using the
// pgvector extension. It is the index of choice when several assistant
// instances share one corpus.
package pgvector

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*Index)(nil)

// Config holds configuration for the pgvector index.
type Config struct {
	// DSN is the PostgreSQL connection string (required).
	DSN string

	// Dimensions is the embedding vector size (required). It must
	// match the embedding service in use.
	Dimensions int

	// Table is the chunk table name (default: policy_chunks).
	Table string
}

// Index stores chunk embeddings in PostgreSQL.
type Index struct {
	pool  *pgxpool.Pool
	table string
}

// NewIndex connects to PostgreSQL and ensures the schema exists.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector: DSN is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("pgvector: dimensions must be positive")
	}
	if cfg.Table == "" {
		cfg.Table = "policy_chunks"
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	idx := &Index{pool: pool, table: cfg.Table}
	if err := idx.ensureSchema(ctx, cfg.Dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) ensureSchema(ctx context.Context, dimensions int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id       TEXT PRIMARY KEY,
			document_id    TEXT NOT NULL,
			policy_id      TEXT NOT NULL,
			text           TEXT NOT NULL,
			token_count    INTEGER NOT NULL,
			section_title  TEXT NOT NULL DEFAULT '',
			start_offset   INTEGER NOT NULL,
			end_offset     INTEGER NOT NULL,
			overlap_prev   INTEGER NOT NULL DEFAULT 0,
			department     TEXT NOT NULL DEFAULT '',
			category       TEXT NOT NULL DEFAULT '',
			effective_date TIMESTAMPTZ NOT NULL,
			last_updated   TIMESTAMPTZ NOT NULL,
			locale         TEXT NOT NULL DEFAULT '',
			embedding      vector(%d) NOT NULL
		)`, idx.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`,
			idx.table, idx.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
			idx.table, idx.table),
	}
	for _, stmt := range stmts {
		if _, err := idx.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces entries keyed by chunk ID. All entries go
// in one transaction so a failed batch leaves the index untouched.
func (idx *Index) Upsert(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := idx.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := idx.upsertEntries(ctx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (idx *Index) upsertEntries(ctx context.Context, tx pgx.Tx, entries []domain.VectorEntry) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(chunk_id, document_id, policy_id, text, token_count, section_title,
		 start_offset, end_offset, overlap_prev, department, category,
		 effective_date, last_updated, locale, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			policy_id = EXCLUDED.policy_id,
			text = EXCLUDED.text,
			token_count = EXCLUDED.token_count,
			section_title = EXCLUDED.section_title,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			overlap_prev = EXCLUDED.overlap_prev,
			department = EXCLUDED.department,
			category = EXCLUDED.category,
			effective_date = EXCLUDED.effective_date,
			last_updated = EXCLUDED.last_updated,
			locale = EXCLUDED.locale,
			embedding = EXCLUDED.embedding`, idx.table)

	for _, entry := range entries {
		c := entry.Chunk
		_, err := tx.Exec(ctx, query,
			c.ID, c.DocumentID, c.PolicyID, c.Text, c.TokenCount, c.SectionTitle,
			c.StartOffset, c.EndOffset, c.OverlapWithPrev, c.Department, c.Category,
			c.EffectiveDate, c.LastUpdated, c.Locale, pgvec.NewVector(entry.Embedding))
		if err != nil {
			return fmt.Errorf("upsert chunk %q: %w", c.ID, err)
		}
	}
	return nil
}

// ReplaceDocument swaps the entry set of one document. Delete and
// inserts share a transaction, so concurrent queries see the old set
// until the commit and the new set after it, never an empty index.
func (idx *Index) ReplaceDocument(ctx context.Context, documentID string, entries []domain.VectorEntry) error {
	if documentID == "" {
		return fmt.Errorf("replace: empty document ID")
	}
	for _, entry := range entries {
		if entry.Chunk.DocumentID != documentID {
			return fmt.Errorf("replace: entry %q belongs to document %q, not %q",
				entry.Chunk.ID, entry.Chunk.DocumentID, documentID)
		}
	}

	tx, err := idx.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	del := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, idx.table)
	if _, err := tx.Exec(ctx, del, documentID); err != nil {
		return fmt.Errorf("replace document %q: %w", documentID, err)
	}
	if err := idx.upsertEntries(ctx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// DeleteDocument removes all entries belonging to a document.
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, idx.table)
	if _, err := idx.pool.Exec(ctx, query, documentID); err != nil {
		return fmt.Errorf("delete document %q: %w", documentID, err)
	}
	return nil
}

// Query finds the k nearest entries to the query vector. The <=>
// operator returns cosine distance, mapped here onto the [0, 1]
// similarity scale the retriever expects.
func (idx *Index) Query(ctx context.Context, embedding []float32, k int, filter driven.QueryFilter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT
			chunk_id, document_id, policy_id, text, token_count, section_title,
			start_offset, end_offset, overlap_prev, department, category,
			effective_date, last_updated, locale,
			(2 - (embedding <=> $1)) / 2 AS similarity
		FROM %s
		WHERE ($2 = '' OR locale = $2)
		  AND ($3 = '' OR category = $3)
		ORDER BY similarity DESC, last_updated DESC, chunk_id ASC
		LIMIT $4`, idx.table)

	rows, err := idx.pool.Query(ctx, query, pgvec.NewVector(embedding), filter.Locale, filter.Category, k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var (
			c          domain.Chunk
			effective  time.Time
			updated    time.Time
			similarity float64
		)
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.PolicyID, &c.Text, &c.TokenCount, &c.SectionTitle,
			&c.StartOffset, &c.EndOffset, &c.OverlapWithPrev, &c.Department, &c.Category,
			&effective, &updated, &c.Locale, &similarity); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		c.EffectiveDate = effective
		c.LastUpdated = updated
		hits = append(hits, driven.VectorHit{Chunk: c, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}

// Count returns the number of live entries.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, idx.table)
	if err := idx.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// Close releases the connection pool.
func (idx *Index) Close() error {
	idx.pool.Close()
	return nil
}
