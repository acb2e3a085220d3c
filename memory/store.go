package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Scope partitions the persistent fact store. Filters are AND over the
// fields that are present; empty fields match everything.
type Scope struct {
	UserID  string `json:"user_id,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// IsEmpty reports whether no scope fields are set.
func (s Scope) IsEmpty() bool {
	return s.UserID == "" && s.AgentID == "" && s.RunID == ""
}

// FactRecord is one persisted fact in the metadata store.
type FactRecord struct {
	// ID uniquely identifies the fact.
	ID MemoryID `json:"id"`
	// Content is the fact text.
	Content string `json:"content"`
	// Scope partitions the fact.
	Scope Scope `json:"scope"`
	// Metadata holds free-form annotations, persisted as JSON.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// CreatedAt is the insertion time.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the last mutation time.
	UpdatedAt time.Time `json:"updated_at"`
	// Hash fingerprints the content for change detection.
	Hash string `json:"hash"`
}

// NewFactRecord creates a fact with a fresh ID and content hash.
func NewFactRecord(content string, scope Scope) *FactRecord {
	now := time.Now().UTC()
	return &FactRecord{
		ID:        NewMemoryID(),
		Content:   content,
		Scope:     scope,
		Metadata:  make(map[string]interface{}, 4),
		CreatedAt: now,
		UpdatedAt: now,
		Hash:      ContentHash(content),
	}
}

// ContentHash returns the hex SHA-256 of the content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HistoryEntry records one mutation of a fact.
type HistoryEntry struct {
	// ID is the history row identifier.
	ID int64 `json:"id"`
	// MemoryID names the mutated fact.
	MemoryID MemoryID `json:"memory_id"`
	// OldContent is the content before the mutation ("" for ADD).
	OldContent string `json:"old_content,omitempty"`
	// NewContent is the content after the mutation ("" for DELETE).
	NewContent string `json:"new_content,omitempty"`
	// Action is the mutation kind.
	Action Action `json:"action"`
	// Timestamp is when the mutation happened.
	Timestamp time.Time `json:"timestamp"`
}

// MetadataStore persists facts and their mutation history in a
// relational backend.
//
// Deleting a fact cascades to its history rows. Scope filters translate
// to SQL conjunctions over the nullable scope columns.
type MetadataStore interface {
	// Insert stores a new fact.
	Insert(ctx context.Context, record *FactRecord) error
	// Get returns the fact with the given ID.
	Get(ctx context.Context, id MemoryID) (*FactRecord, error)
	// Update rewrites a fact's content (and hash).
	Update(ctx context.Context, id MemoryID, content string) error
	// Delete removes a fact and, by cascade, its history.
	Delete(ctx context.Context, id MemoryID) error
	// GetAll returns the facts matching the scope.
	GetAll(ctx context.Context, scope Scope) ([]*FactRecord, error)
	// DeleteAll removes every fact matching the scope, returning the
	// number removed.
	DeleteAll(ctx context.Context, scope Scope) (int, error)
	// InsertHistory appends a mutation record.
	InsertHistory(ctx context.Context, entry *HistoryEntry) error
	// GetHistory returns a fact's mutation records, oldest first.
	GetHistory(ctx context.Context, id MemoryID) ([]*HistoryEntry, error)
	// Close releases the backing database handle.
	Close() error
}
