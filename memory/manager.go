package memory

import (
	"context"
	"sync"

	"github.com/InfinitiBit/graphbit-go/embeddings"
	"github.com/InfinitiBit/graphbit-go/types"
)

// ManagerConfig configures the typed memory manager.
type ManagerConfig struct {
	// Capacities overrides per-type storage limits.
	Capacities map[MemoryType]int
	// Decay is the forgetting policy.
	Decay DecayConfig
	// EmbeddingService, when set, embeds stored memories and enables
	// semantic retrieval. Nil falls back to keyword retrieval.
	EmbeddingService *embeddings.Service
}

// DefaultManagerConfig returns the standard manager configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{Decay: DefaultDecayConfig()}
}

// Stats summarizes the manager's state.
type Stats struct {
	// TotalMemories is the entry count across all types.
	TotalMemories int `json:"total_memories"`
	// ByType breaks the count down per type.
	ByType map[MemoryType]int `json:"by_type"`
	// IndexedEmbeddings counts vectors in the index.
	IndexedEmbeddings int `json:"indexed_embeddings"`
	// ActiveSession is the working-memory session ("" when none).
	ActiveSession string `json:"active_session,omitempty"`
}

// Manager owns the typed in-process memory system: storage with
// capacity eviction, the vector index, retrieval, working-memory
// sessions, and decay.
//
// All operations, searches included, serialize behind one lock; the
// vector index additionally guards its entries with its own RWMutex.
type Manager struct {
	mu sync.Mutex

	storage   Storage
	index     *VectorIndex
	retriever *Retriever
	decay     *DecayManager
	working   *WorkingMemory
	embedding *embeddings.Service
}

// NewManager creates a manager with the given configuration.
func NewManager(config ManagerConfig) *Manager {
	var storage Storage
	if len(config.Capacities) > 0 {
		storage = NewInMemoryStorageWithCapacities(config.Capacities)
	} else {
		storage = NewInMemoryStorage()
	}
	return &Manager{
		storage:   storage,
		index:     NewVectorIndex(),
		retriever: NewRetriever(config.EmbeddingService),
		decay:     NewDecayManager(config.Decay),
		working:   NewWorkingMemory(),
		embedding: config.EmbeddingService,
	}
}

// NewManagerWithDefaults creates a manager with default capacities and
// decay, without embeddings.
func NewManagerWithDefaults() *Manager {
	return NewManager(DefaultManagerConfig())
}

// StartSession begins a working-memory session.
func (m *Manager) StartSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working.StartSession(sessionID)
}

// EndSession clears the active session's memories and returns how many
// were removed.
func (m *Manager) EndSession() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.working.SessionMemories(m.storage) {
		m.index.Remove(entry.ID)
	}
	return m.working.EndSession(m.storage)
}

// SessionID returns the active working-memory session.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.working.SessionID()
}

// StoreWorking stores a working memory in the active session.
func (m *Manager) StoreWorking(ctx context.Context, content string) (MemoryID, error) {
	m.mu.Lock()
	entry := NewEntry(content, Working, m.working.SessionID())
	m.mu.Unlock()
	return m.StoreEntry(ctx, entry)
}

// Store stores a memory of the given type with explicit importance.
func (m *Manager) Store(ctx context.Context, content string, memoryType MemoryType, importance float32) (MemoryID, error) {
	return m.StoreEntry(ctx, NewEntryWithImportance(content, memoryType, importance, ""))
}

// StoreEntry stores a prepared entry, embedding it when an embedding
// service is configured.
func (m *Manager) StoreEntry(ctx context.Context, entry *Entry) (MemoryID, error) {
	if entry.Content == "" {
		return MemoryID{}, types.MemoryError("memory content must not be empty")
	}

	if m.embedding != nil && entry.Embedding == nil {
		vector, err := m.embedding.EmbedText(ctx, entry.Content)
		if err != nil {
			return MemoryID{}, types.WrapError(types.ErrMemory, err, "failed to embed memory content")
		}
		entry.Embedding = vector
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.storage.Store(entry); err != nil {
		return MemoryID{}, err
	}
	if entry.Embedding != nil {
		m.index.Insert(entry.ID, entry.Embedding)
	}
	return entry.ID, nil
}

// Get returns a memory by ID and records the access.
func (m *Manager) Get(id MemoryID) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retriever.GetByID(id, m.storage)
}

// Delete removes a memory and its embedding.
func (m *Manager) Delete(id MemoryID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index.Remove(id)
	return m.storage.Delete(id)
}

// Retrieve runs a query against storage.
func (m *Manager) Retrieve(ctx context.Context, query Query) ([]RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retriever.Retrieve(ctx, query, m.storage)
}

// SearchByVector searches the vector index directly and resolves the
// matched entries.
func (m *Manager) SearchByVector(queryEmbedding []float32, topK int, threshold float64) []RetrievalResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := m.index.Search(queryEmbedding, topK, threshold)
	results := make([]RetrievalResult, 0, len(matches))
	for _, match := range matches {
		if entry, ok := m.storage.Get(match.MemoryID); ok {
			results = append(results, RetrievalResult{Entry: entry, Similarity: float32(match.Score)})
		}
	}
	return results
}

// ListBySession returns the entries stored under a session.
func (m *Manager) ListBySession(sessionID string) []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storage.ListBySession(sessionID)
}

// AddRelation links two memories bidirectionally.
func (m *Manager) AddRelation(a, b MemoryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entryA, okA := m.storage.Get(a)
	entryB, okB := m.storage.Get(b)
	if !okA || !okB {
		return types.MemoryError("cannot relate: one of %s, %s not found", a, b)
	}
	entryA.AddRelation(b)
	entryB.AddRelation(a)
	return nil
}

// RunDecay runs a decay scan if the interval has elapsed.
func (m *Manager) RunDecay() DecayStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.decay.ShouldRunDecay() {
		return NewDecayStats()
	}
	return m.runDecayLocked()
}

// ForceDecay runs a decay scan immediately.
func (m *Manager) ForceDecay() DecayStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	originalEnabled := m.decay.Config().Enabled
	config := m.decay.Config()
	config.Enabled = true
	m.decay.UpdateConfig(config)
	stats := m.runDecayLocked()
	config.Enabled = originalEnabled
	m.decay.UpdateConfig(config)
	return stats
}

func (m *Manager) runDecayLocked() DecayStats {
	before := make(map[MemoryID]struct{}, m.storage.Count())
	for _, entry := range m.storage.ListAll() {
		before[entry.ID] = struct{}{}
	}

	stats := m.decay.RunDecay(m.storage)

	// Drop index entries for forgotten memories.
	if stats.Forgotten > 0 {
		for id := range before {
			if _, ok := m.storage.Get(id); !ok {
				m.index.Remove(id)
			}
		}
	}
	return stats
}

// UpdateDecayConfig replaces the decay policy.
func (m *Manager) UpdateDecayConfig(config DecayConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decay.UpdateConfig(config)
}

// Working exposes the working-memory manager for session metadata.
func (m *Manager) Working() *WorkingMemory { return m.working }

// Storage exposes the underlying storage. Intended for tests and decay
// tooling; mutations must go through the manager.
func (m *Manager) Storage() Storage { return m.storage }

// GetStats snapshots the manager state.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType := make(map[MemoryType]int, 4)
	for _, t := range AllMemoryTypes() {
		byType[t] = m.storage.CountByType(t)
	}
	return Stats{
		TotalMemories:     m.storage.Count(),
		ByType:            byType,
		IndexedEmbeddings: m.index.Len(),
		ActiveSession:     m.working.SessionID(),
	}
}
