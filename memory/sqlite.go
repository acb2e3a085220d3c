package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/InfinitiBit/graphbit-go/types"
)

// SQLiteStore is the SQLite MetadataStore.
//
// A single-file database with zero setup, meant for development,
// testing, and single-process deployments. WAL journaling is enabled,
// but the store keeps a single pooled connection and takes one mutex
// for every read and write, so all operations, reads included, run one
// at a time.
//
// Schema:
//   - memories: fact rows with nullable scope columns and content hash
//   - memory_history: per-fact mutation log, ON DELETE CASCADE
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if needed) the database at path.
// Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "failed to open SQLite connection")
	}

	// SQLite supports one writer at a time; keep the pool at one
	// connection so transactions never contend with themselves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, types.WrapError(types.ErrMemory, err, "failed to apply %q", pragma)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	memoriesTable := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			user_id TEXT,
			agent_id TEXT,
			run_id TEXT,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			hash TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, memoriesTable); err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to create memories table")
	}

	historyTable := `
		CREATE TABLE IF NOT EXISTS memory_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
			old_content TEXT,
			new_content TEXT,
			action TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, historyTable); err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to create memory_history table")
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_memories_agent ON memories(agent_id)",
		"CREATE INDEX IF NOT EXISTS idx_memories_run ON memories(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_history_memory ON memory_history(memory_id)",
	}
	for _, index := range indexes {
		if _, err := s.db.ExecContext(ctx, index); err != nil {
			return types.WrapError(types.ErrMemory, err, "failed to create index")
		}
	}
	return nil
}

// Insert implements MetadataStore.
func (s *SQLiteStore) Insert(ctx context.Context, record *FactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.MemoryError("store is closed")
	}

	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to encode metadata")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, user_id, agent_id, run_id, metadata, created_at, updated_at, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(), record.Content,
		nullable(record.Scope.UserID), nullable(record.Scope.AgentID), nullable(record.Scope.RunID),
		string(metadata), record.CreatedAt, record.UpdatedAt, record.Hash,
	)
	if err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to insert memory %s", record.ID)
	}
	return nil
}

// Get implements MetadataStore.
func (s *SQLiteStore) Get(ctx context.Context, id MemoryID) (*FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.MemoryError("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, user_id, agent_id, run_id, metadata, created_at, updated_at, hash
		FROM memories WHERE id = ?`, id.String())
	record, err := scanFactRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.MemoryError("memory not found: %s", id)
	}
	return record, err
}

// Update implements MetadataStore.
func (s *SQLiteStore) Update(ctx context.Context, id MemoryID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.MemoryError("store is closed")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE memories SET content = ?, hash = ?, updated_at = ? WHERE id = ?`,
		content, ContentHash(content), time.Now().UTC(), id.String())
	if err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to update memory %s", id)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return types.MemoryError("memory not found: %s", id)
	}
	return nil
}

// Delete implements MetadataStore. History rows cascade.
func (s *SQLiteStore) Delete(ctx context.Context, id MemoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.MemoryError("store is closed")
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id.String())
	if err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to delete memory %s", id)
	}
	return nil
}

// GetAll implements MetadataStore.
func (s *SQLiteStore) GetAll(ctx context.Context, scope Scope) ([]*FactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.MemoryError("store is closed")
	}

	where, args := scopeFilter(scope)
	query := `
		SELECT id, content, user_id, agent_id, run_id, metadata, created_at, updated_at, hash
		FROM memories` + where + " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "failed to query memories")
	}
	defer func() { _ = rows.Close() }()

	var records []*FactRecord
	for rows.Next() {
		record, err := scanFactRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteAll implements MetadataStore.
func (s *SQLiteStore) DeleteAll(ctx context.Context, scope Scope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, types.MemoryError("store is closed")
	}

	where, args := scopeFilter(scope)
	result, err := s.db.ExecContext(ctx, "DELETE FROM memories"+where, args...)
	if err != nil {
		return 0, types.WrapError(types.ErrMemory, err, "failed to delete memories")
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// InsertHistory implements MetadataStore.
func (s *SQLiteStore) InsertHistory(ctx context.Context, entry *HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.MemoryError("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_history (memory_id, old_content, new_content, action, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		entry.MemoryID.String(), entry.OldContent, entry.NewContent, string(entry.Action), entry.Timestamp)
	if err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to insert history for %s", entry.MemoryID)
	}
	return nil
}

// GetHistory implements MetadataStore.
func (s *SQLiteStore) GetHistory(ctx context.Context, id MemoryID) ([]*HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, types.MemoryError("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, memory_id, old_content, new_content, action, timestamp
		FROM memory_history WHERE memory_id = ? ORDER BY id ASC`, id.String())
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "failed to query history for %s", id)
	}
	defer func() { _ = rows.Close() }()

	var entries []*HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var memoryID, action string
		var oldContent, newContent sql.NullString
		if err := rows.Scan(&entry.ID, &memoryID, &oldContent, &newContent, &action, &entry.Timestamp); err != nil {
			return nil, types.WrapError(types.ErrMemory, err, "failed to scan history row")
		}
		parsedID, err := MemoryIDFromString(memoryID)
		if err != nil {
			return nil, types.WrapError(types.ErrMemory, err, "invalid memory id in history")
		}
		entry.MemoryID = parsedID
		entry.OldContent = oldContent.String
		entry.NewContent = newContent.String
		entry.Action = Action(action)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Close implements MetadataStore.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFactRecord(row rowScanner) (*FactRecord, error) {
	var record FactRecord
	var id, metadata string
	var userID, agentID, runID sql.NullString

	err := row.Scan(&id, &record.Content, &userID, &agentID, &runID,
		&metadata, &record.CreatedAt, &record.UpdatedAt, &record.Hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, types.WrapError(types.ErrMemory, err, "failed to scan memory row")
	}

	parsedID, err := MemoryIDFromString(id)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "invalid memory id %q", id)
	}
	record.ID = parsedID
	record.Scope = Scope{UserID: userID.String, AgentID: agentID.String, RunID: runID.String}

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &record.Metadata); err != nil {
			return nil, types.WrapError(types.ErrMemory, err, "invalid metadata JSON for %s", id)
		}
	}
	return &record, nil
}

// scopeFilter builds the WHERE clause for a scope: AND over the
// present fields, empty when the scope is empty.
func scopeFilter(scope Scope) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if scope.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, scope.UserID)
	}
	if scope.AgentID != "" {
		clauses = append(clauses, "agent_id = ?")
		args = append(args, scope.AgentID)
	}
	if scope.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, scope.RunID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
