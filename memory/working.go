package memory

import (
	"fmt"
	"strings"
)

// WorkingMemory manages session-scoped short-term memories. Ending a
// session clears every entry stored under it; other sessions are
// untouched.
type WorkingMemory struct {
	currentSession  string
	sessionMetadata map[string]interface{}
}

// NewWorkingMemory creates a working-memory manager with no active
// session.
func NewWorkingMemory() *WorkingMemory {
	return &WorkingMemory{sessionMetadata: make(map[string]interface{}, 8)}
}

// StartSession begins a new session, clearing any session metadata.
func (w *WorkingMemory) StartSession(sessionID string) {
	w.currentSession = sessionID
	w.sessionMetadata = make(map[string]interface{}, 8)
}

// EndSession clears the active session's memories from storage and
// returns how many were removed.
func (w *WorkingMemory) EndSession(storage Storage) int {
	if w.currentSession == "" {
		return 0
	}
	count := len(storage.ListBySession(w.currentSession))
	storage.ClearSession(w.currentSession)
	w.currentSession = ""
	w.sessionMetadata = make(map[string]interface{}, 8)
	return count
}

// SessionID returns the active session ID ("" when none).
func (w *WorkingMemory) SessionID() string { return w.currentSession }

// IsSessionActive reports whether a session is in progress.
func (w *WorkingMemory) IsSessionActive() bool { return w.currentSession != "" }

// Store adds a working memory to the active session.
func (w *WorkingMemory) Store(content string, storage Storage) (MemoryID, error) {
	entry := NewEntry(content, Working, w.currentSession)
	if err := storage.Store(entry); err != nil {
		return MemoryID{}, err
	}
	return entry.ID, nil
}

// StoreWithMetadata adds a working memory with custom metadata.
func (w *WorkingMemory) StoreWithMetadata(content string, metadata Metadata, storage Storage) (MemoryID, error) {
	entry := NewEntry(content, Working, w.currentSession)
	entry.Metadata = metadata
	if err := storage.Store(entry); err != nil {
		return MemoryID{}, err
	}
	return entry.ID, nil
}

// SessionMemories returns the active session's entries.
func (w *WorkingMemory) SessionMemories(storage Storage) []*Entry {
	if w.currentSession == "" {
		return nil
	}
	return storage.ListBySession(w.currentSession)
}

// CountSessionMemories returns how many entries the active session
// holds.
func (w *WorkingMemory) CountSessionMemories(storage Storage) int {
	return len(w.SessionMemories(storage))
}

// ClearSessionMemories removes the active session's entries without
// ending the session.
func (w *WorkingMemory) ClearSessionMemories(storage Storage) int {
	if w.currentSession == "" {
		return 0
	}
	count := len(storage.ListBySession(w.currentSession))
	storage.ClearSession(w.currentSession)
	return count
}

// SessionContext formats the active session's memories as a numbered
// context block for prompts.
func (w *WorkingMemory) SessionContext(storage Storage) string {
	memories := w.SessionMemories(storage)
	if len(memories) == 0 {
		return "No working memory available."
	}

	var sb strings.Builder
	sb.WriteString("Working Memory Context:\n")
	for i, memory := range memories {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, memory.Content))
	}
	return sb.String()
}

// SetSessionMetadata stores a session-scoped value.
func (w *WorkingMemory) SetSessionMetadata(key string, value interface{}) {
	w.sessionMetadata[key] = value
}

// SessionMetadata reads a session-scoped value.
func (w *WorkingMemory) SessionMetadata(key string) (interface{}, bool) {
	value, ok := w.sessionMetadata[key]
	return value, ok
}

// AllSessionMetadata returns a copy of the session metadata map.
func (w *WorkingMemory) AllSessionMetadata() map[string]interface{} {
	snapshot := make(map[string]interface{}, len(w.sessionMetadata))
	for key, value := range w.sessionMetadata {
		snapshot[key] = value
	}
	return snapshot
}

// ClearSessionMetadata drops all session metadata.
func (w *WorkingMemory) ClearSessionMetadata() {
	w.sessionMetadata = make(map[string]interface{}, 8)
}
