package memory

import (
	"time"
)

// Storage is the typed in-process memory store.
//
// Implementations are not required to be goroutine-safe; the Manager
// serializes access behind its own lock.
type Storage interface {
	// Store inserts an entry, evicting the least-retained entry of the
	// same type if the type's capacity is reached.
	Store(entry *Entry) error
	// Get returns the entry with the given ID.
	Get(id MemoryID) (*Entry, bool)
	// Delete removes an entry, reporting whether it existed.
	Delete(id MemoryID) bool
	// ListByType returns all entries of one type.
	ListByType(memoryType MemoryType) []*Entry
	// ListBySession returns all entries scoped to a session.
	ListBySession(sessionID string) []*Entry
	// ListAll returns every entry.
	ListAll() []*Entry
	// CountByType counts entries of one type.
	CountByType(memoryType MemoryType) int
	// Count returns the total entry count.
	Count() int
	// Clear removes everything.
	Clear()
	// ClearType removes all entries of one type.
	ClearType(memoryType MemoryType)
	// ClearSession removes all entries of one session.
	ClearSession(sessionID string)
}

// InMemoryStorage is the map-backed Storage with per-type capacity
// limits and type/session indexes.
type InMemoryStorage struct {
	memories     map[MemoryID]*Entry
	typeIndex    map[MemoryType][]MemoryID
	sessionIndex map[string][]MemoryID
	capacities   map[MemoryType]int
}

// NewInMemoryStorage creates storage with default per-type capacities.
func NewInMemoryStorage() *InMemoryStorage {
	capacities := make(map[MemoryType]int, 4)
	for _, t := range AllMemoryTypes() {
		capacities[t] = t.DefaultCapacity()
	}
	return NewInMemoryStorageWithCapacities(capacities)
}

// NewInMemoryStorageWithCapacities creates storage with custom per-type
// capacities.
func NewInMemoryStorageWithCapacities(capacities map[MemoryType]int) *InMemoryStorage {
	return &InMemoryStorage{
		memories:     make(map[MemoryID]*Entry, 256),
		typeIndex:    make(map[MemoryType][]MemoryID, 4),
		sessionIndex: make(map[string][]MemoryID, 16),
		capacities:   capacities,
	}
}

// SetCapacity adjusts the capacity for one type.
func (s *InMemoryStorage) SetCapacity(memoryType MemoryType, capacity int) {
	s.capacities[memoryType] = capacity
}

// Capacity returns the capacity limit for one type.
func (s *InMemoryStorage) Capacity(memoryType MemoryType) int {
	if capacity, ok := s.capacities[memoryType]; ok {
		return capacity
	}
	return memoryType.DefaultCapacity()
}

// Store implements Storage.
func (s *InMemoryStorage) Store(entry *Entry) error {
	if s.CountByType(entry.MemoryType) >= s.Capacity(entry.MemoryType) {
		s.evictLeastRetained(entry.MemoryType)
	}

	s.typeIndex[entry.MemoryType] = append(s.typeIndex[entry.MemoryType], entry.ID)
	if entry.SessionID != "" {
		s.sessionIndex[entry.SessionID] = append(s.sessionIndex[entry.SessionID], entry.ID)
	}
	s.memories[entry.ID] = entry
	return nil
}

// evictLeastRetained removes the entry of the given type with the
// lowest decay score.
func (s *InMemoryStorage) evictLeastRetained(memoryType MemoryType) {
	entries := s.ListByType(memoryType)
	if len(entries) == 0 {
		return
	}

	now := time.Now().UTC()
	victim := entries[0]
	victimScore := victim.CalculateDecay(now)
	for _, entry := range entries[1:] {
		if score := entry.CalculateDecay(now); score < victimScore {
			victim = entry
			victimScore = score
		}
	}
	s.Delete(victim.ID)
}

// Get implements Storage.
func (s *InMemoryStorage) Get(id MemoryID) (*Entry, bool) {
	entry, ok := s.memories[id]
	return entry, ok
}

// Delete implements Storage.
func (s *InMemoryStorage) Delete(id MemoryID) bool {
	entry, ok := s.memories[id]
	if !ok {
		return false
	}
	delete(s.memories, id)

	s.typeIndex[entry.MemoryType] = removeID(s.typeIndex[entry.MemoryType], id)
	if entry.SessionID != "" {
		s.sessionIndex[entry.SessionID] = removeID(s.sessionIndex[entry.SessionID], id)
	}
	return true
}

// ListByType implements Storage.
func (s *InMemoryStorage) ListByType(memoryType MemoryType) []*Entry {
	return s.resolve(s.typeIndex[memoryType])
}

// ListBySession implements Storage.
func (s *InMemoryStorage) ListBySession(sessionID string) []*Entry {
	return s.resolve(s.sessionIndex[sessionID])
}

// ListAll implements Storage.
func (s *InMemoryStorage) ListAll() []*Entry {
	entries := make([]*Entry, 0, len(s.memories))
	for _, entry := range s.memories {
		entries = append(entries, entry)
	}
	return entries
}

// CountByType implements Storage.
func (s *InMemoryStorage) CountByType(memoryType MemoryType) int {
	return len(s.typeIndex[memoryType])
}

// Count implements Storage.
func (s *InMemoryStorage) Count() int { return len(s.memories) }

// Clear implements Storage.
func (s *InMemoryStorage) Clear() {
	s.memories = make(map[MemoryID]*Entry, 256)
	s.typeIndex = make(map[MemoryType][]MemoryID, 4)
	s.sessionIndex = make(map[string][]MemoryID, 16)
}

// ClearType implements Storage.
func (s *InMemoryStorage) ClearType(memoryType MemoryType) {
	ids := s.typeIndex[memoryType]
	delete(s.typeIndex, memoryType)
	for _, id := range ids {
		if entry, ok := s.memories[id]; ok {
			delete(s.memories, id)
			if entry.SessionID != "" {
				s.sessionIndex[entry.SessionID] = removeID(s.sessionIndex[entry.SessionID], id)
			}
		}
	}
}

// ClearSession implements Storage.
func (s *InMemoryStorage) ClearSession(sessionID string) {
	ids := s.sessionIndex[sessionID]
	delete(s.sessionIndex, sessionID)
	for _, id := range ids {
		if entry, ok := s.memories[id]; ok {
			delete(s.memories, id)
			s.typeIndex[entry.MemoryType] = removeID(s.typeIndex[entry.MemoryType], id)
		}
	}
}

func (s *InMemoryStorage) resolve(ids []MemoryID) []*Entry {
	entries := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := s.memories[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func removeID(ids []MemoryID, target MemoryID) []MemoryID {
	kept := ids[:0]
	for _, id := range ids {
		if id != target {
			kept = append(kept, id)
		}
	}
	return kept
}
