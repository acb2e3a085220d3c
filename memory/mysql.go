package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/InfinitiBit/graphbit-go/types"
)

// MySQLStore is the MySQL MetadataStore, for multi-process deployments
// that outgrow SQLite.
//
// The DSN must include parseTime=true so TIMESTAMP columns scan into
// time.Time, e.g. "user:pass@tcp(localhost:3306)/graphbit?parseTime=true".
type MySQLStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLStore connects to MySQL and ensures the schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "failed to open MySQL connection")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, types.WrapError(types.ErrMemory, err, "failed to ping MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	memoriesTable := `
		CREATE TABLE IF NOT EXISTS memories (
			id VARCHAR(36) PRIMARY KEY,
			content TEXT NOT NULL,
			user_id VARCHAR(255),
			agent_id VARCHAR(255),
			run_id VARCHAR(255),
			metadata JSON,
			created_at TIMESTAMP(6) NOT NULL,
			updated_at TIMESTAMP(6) NOT NULL,
			hash VARCHAR(64) NOT NULL,
			INDEX idx_memories_user (user_id),
			INDEX idx_memories_agent (agent_id),
			INDEX idx_memories_run (run_id)
		) ENGINE=InnoDB
	`
	if _, err := s.db.ExecContext(ctx, memoriesTable); err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to create memories table")
	}

	historyTable := `
		CREATE TABLE IF NOT EXISTS memory_history (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			memory_id VARCHAR(36) NOT NULL,
			old_content TEXT,
			new_content TEXT,
			action VARCHAR(16) NOT NULL,
			timestamp TIMESTAMP(6) NOT NULL,
			INDEX idx_history_memory (memory_id),
			CONSTRAINT fk_history_memory FOREIGN KEY (memory_id)
				REFERENCES memories(id) ON DELETE CASCADE
		) ENGINE=InnoDB
	`
	if _, err := s.db.ExecContext(ctx, historyTable); err != nil {
		return types.WrapError(types.ErrMemory, err, "failed to create memory_history table")
	}
	return nil
}

// Insert implements MetadataStore.
func (s *MySQLStore) Insert(ctx context.Context, record *FactRecord) error {
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
func (s *MySQLStore) Get(ctx context.Context, id MemoryID) (*FactRecord, error) {
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
func (s *MySQLStore) Update(ctx context.Context, id MemoryID, content string) error {
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
func (s *MySQLStore) Delete(ctx context.Context, id MemoryID) error {
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
func (s *MySQLStore) GetAll(ctx context.Context, scope Scope) ([]*FactRecord, error) {
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
func (s *MySQLStore) DeleteAll(ctx context.Context, scope Scope) (int, error) {
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
func (s *MySQLStore) InsertHistory(ctx context.Context, entry *HistoryEntry) error {
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
func (s *MySQLStore) GetHistory(ctx context.Context, id MemoryID) ([]*HistoryEntry, error) {
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
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
