package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hrdesk-labs/hrdesk/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.hrdesk/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".hrdesk", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// WAL mode for better concurrency between the watcher and queries.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// SessionStore returns a SessionStore interface backed by this store.
// Sessions never expire; use SessionStoreWithTTL for bounded state.
func (s *Store) SessionStore() driven.SessionStore {
	return s.SessionStoreWithTTL(0)
}

// SessionStoreWithTTL returns a SessionStore whose sessions expire ttl
// after their last update. A zero ttl disables expiry.
func (s *Store) SessionStoreWithTTL(ttl time.Duration) driven.SessionStore {
	return &sessionStore{store: s, ttl: ttl, now: time.Now}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1).
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or replaces a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.PolicyDocument) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, policy_id, title, content, department, category,
			effective_date, last_updated, locale, source_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			policy_id = excluded.policy_id,
			title = excluded.title,
			content = excluded.content,
			department = excluded.department,
			category = excluded.category,
			effective_date = excluded.effective_date,
			last_updated = excluded.last_updated,
			locale = excluded.locale,
			source_path = excluded.source_path
	`, doc.ID, doc.PolicyID, doc.Title, doc.Content, doc.Department, doc.Category,
		doc.EffectiveDate.UTC(), doc.LastUpdated.UTC(), doc.Locale, doc.SourcePath)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveChunks stores the chunk set for a document, replacing any
// previous set in one transaction.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	documentID := chunks[0].DocumentID
	for _, c := range chunks {
		if c.DocumentID != documentID {
			return domain.ErrInvalidInput
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning chunk transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing previous chunks: %w", err)
	}

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, text, token_count, section_title,
				start_offset, end_offset, overlap_prev, policy_id, department,
				category, effective_date, last_updated, locale)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.DocumentID, c.Text, c.TokenCount, c.SectionTitle,
			c.StartOffset, c.EndOffset, c.OverlapWithPrev, c.PolicyID, c.Department,
			c.Category, c.EffectiveDate.UTC(), c.LastUpdated.UTC(), c.Locale)
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.PolicyDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, policy_id, title, content, department, category,
			effective_date, last_updated, locale, source_path
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// GetDocumentByPolicyID retrieves the live document for a policy.
func (s *documentStore) GetDocumentByPolicyID(ctx context.Context, policyID string) (*domain.PolicyDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, policy_id, title, content, department, category,
			effective_date, last_updated, locale, source_path
		FROM documents WHERE policy_id = ?
	`, policyID)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (*domain.PolicyDocument, error) {
	var doc domain.PolicyDocument
	var effectiveDate, lastUpdated sql.NullTime
	err := row.Scan(&doc.ID, &doc.PolicyID, &doc.Title, &doc.Content,
		&doc.Department, &doc.Category, &effectiveDate, &lastUpdated,
		&doc.Locale, &doc.SourcePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if effectiveDate.Valid {
		doc.EffectiveDate = effectiveDate.Time
	}
	if lastUpdated.Valid {
		doc.LastUpdated = lastUpdated.Time
	}
	return &doc, nil
}

// GetChunks retrieves all chunks of a document ordered by offset.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, text, token_count, section_title,
			start_offset, end_offset, overlap_prev, policy_id, department,
			category, effective_date, last_updated, locale
		FROM chunks WHERE document_id = ?
		ORDER BY start_offset ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var effectiveDate, lastUpdated sql.NullTime
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.TokenCount,
			&c.SectionTitle, &c.StartOffset, &c.EndOffset, &c.OverlapWithPrev,
			&c.PolicyID, &c.Department, &c.Category,
			&effectiveDate, &lastUpdated, &c.Locale); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if effectiveDate.Valid {
			c.EffectiveDate = effectiveDate.Time
		}
		if lastUpdated.Valid {
			c.LastUpdated = lastUpdated.Time
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// DeleteDocument removes a document and its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListDocuments returns all stored documents sorted by ID.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.PolicyDocument, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, policy_id, title, content, department, category,
			effective_date, last_updated, locale, source_path
		FROM documents ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.PolicyDocument
	for rows.Next() {
		var doc domain.PolicyDocument
		var effectiveDate, lastUpdated sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.PolicyID, &doc.Title, &doc.Content,
			&doc.Department, &doc.Category, &effectiveDate, &lastUpdated,
			&doc.Locale, &doc.SourcePath); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if effectiveDate.Valid {
			doc.EffectiveDate = effectiveDate.Time
		}
		if lastUpdated.Valid {
			doc.LastUpdated = lastUpdated.Time
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

var _ driven.SessionStore = (*sessionStore)(nil)

// slotsRecord is the JSON shape of persisted leave slots.
type slotsRecord struct {
	Type      string `json:"type,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Save stores or replaces the state for a session.
func (s *sessionStore) Save(ctx context.Context, state domain.ConversationState) error {
	if state.SessionID == "" {
		return domain.ErrInvalidInput
	}

	slotsJSON, err := json.Marshal(encodeSlots(state.Slots))
	if err != nil {
		return fmt.Errorf("marshalling slots: %w", err)
	}

	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, intent, slots, turn_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id,
			intent = excluded.intent,
			slots = excluded.slots,
			turn_id = excluded.turn_id,
			updated_at = excluded.updated_at
	`, state.SessionID, state.UserID, string(state.Intent), string(slotsJSON),
		state.TurnID, state.UpdatedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Get retrieves the state for a session.
func (s *sessionStore) Get(ctx context.Context, sessionID string) (domain.ConversationState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, intent, slots, turn_id, updated_at
		FROM sessions WHERE session_id = ?
	`, sessionID)

	var state domain.ConversationState
	var intent, slotsJSON string
	var updatedAt sql.NullTime
	err := row.Scan(&state.SessionID, &state.UserID, &intent, &slotsJSON,
		&state.TurnID, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ConversationState{}, domain.ErrNotFound
		}
		return domain.ConversationState{}, fmt.Errorf("scanning session: %w", err)
	}

	state.Intent = domain.Intent(intent)
	if updatedAt.Valid {
		state.UpdatedAt = updatedAt.Time
	}

	// Treat a stale row as absent and drop it.
	if s.ttl > 0 && s.now().Sub(state.UpdatedAt) > s.ttl {
		if err := s.Delete(ctx, sessionID); err != nil {
			return domain.ConversationState{}, err
		}
		return domain.ConversationState{}, domain.ErrNotFound
	}

	var rec slotsRecord
	if err := json.Unmarshal([]byte(slotsJSON), &rec); err != nil {
		return domain.ConversationState{}, fmt.Errorf("unmarshalling slots: %w", err)
	}
	state.Slots, err = decodeSlots(rec)
	if err != nil {
		return domain.ConversationState{}, fmt.Errorf("decoding slots: %w", err)
	}

	return state, nil
}

// Delete discards a session's state.
func (s *sessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func encodeSlots(slots domain.LeaveSlots) slotsRecord {
	rec := slotsRecord{
		Type:   string(slots.Type),
		Reason: slots.Reason,
	}
	if !slots.StartDate.IsZero() {
		rec.StartDate = slots.StartDate.Format(time.DateOnly)
	}
	if !slots.EndDate.IsZero() {
		rec.EndDate = slots.EndDate.Format(time.DateOnly)
	}
	return rec
}

func decodeSlots(rec slotsRecord) (domain.LeaveSlots, error) {
	slots := domain.LeaveSlots{
		Type:   domain.LeaveType(rec.Type),
		Reason: rec.Reason,
	}
	if rec.StartDate != "" {
		t, err := time.Parse(time.DateOnly, rec.StartDate)
		if err != nil {
			return domain.LeaveSlots{}, fmt.Errorf("parsing start date: %w", err)
		}
		slots.StartDate = t
	}
	if rec.EndDate != "" {
		t, err := time.Parse(time.DateOnly, rec.EndDate)
		if err != nil {
			return domain.LeaveSlots{}, fmt.Errorf("parsing end date: %w", err)
		}
		slots.EndDate = t
	}
	return slots, nil
}
