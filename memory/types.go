// Package memory provides the stateful memory subsystem: typed memory
// entries with decay, capacity-bounded storage, vector-based semantic
// retrieval, session-scoped working memory, LLM fact extraction, and a
// scope-partitioned persistent fact store with mutation history.
package memory

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MemoryID uniquely identifies a memory entry.
type MemoryID struct {
	uuid.UUID
}

// NewMemoryID creates a new random memory ID.
func NewMemoryID() MemoryID {
	return MemoryID{uuid.New()}
}

// MemoryIDFromString parses a memory ID from its canonical UUID form.
func MemoryIDFromString(s string) (MemoryID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MemoryID{}, err
	}
	return MemoryID{id}, nil
}

// MemoryType partitions memories by retention semantics.
type MemoryType string

// Memory types.
const (
	// Working is short-term session-scoped conversation context.
	Working MemoryType = "working"
	// Factual is long-term structured knowledge.
	Factual MemoryType = "factual"
	// Episodic records specific past interactions.
	Episodic MemoryType = "episodic"
	// Semantic is general knowledge distilled over time.
	Semantic MemoryType = "semantic"
)

// AllMemoryTypes returns every memory type.
func AllMemoryTypes() []MemoryType {
	return []MemoryType{Working, Factual, Episodic, Semantic}
}

// DefaultCapacity returns the default per-type storage capacity.
func (t MemoryType) DefaultCapacity() int {
	switch t {
	case Working:
		return 100
	case Factual:
		return 1000
	case Episodic:
		return 500
	case Semantic:
		return 200
	default:
		return 100
	}
}

// Metadata annotates a memory entry.
type Metadata struct {
	// Tags categorize the memory.
	Tags []string `json:"tags"`
	// Source records where the memory came from ("conversation",
	// "user_input", "system").
	Source string `json:"source"`
	// Custom holds free-form fields.
	Custom map[string]interface{} `json:"custom"`
	// ImageData holds base64 image bytes for multimodal memories.
	ImageData string `json:"image_data,omitempty"`
	// ImageDescription describes the image.
	ImageDescription string `json:"image_description,omitempty"`
}

// NewMetadata creates empty metadata with an unknown source.
func NewMetadata() Metadata {
	return Metadata{
		Tags:   make([]string, 0, 4),
		Source: "unknown",
		Custom: make(map[string]interface{}, 4),
	}
}

// AddTag appends a tag if not already present.
func (m *Metadata) AddTag(tag string) {
	for _, existing := range m.Tags {
		if existing == tag {
			return
		}
	}
	m.Tags = append(m.Tags, tag)
}

// HasTag reports whether the metadata carries the tag.
func (m *Metadata) HasTag(tag string) bool {
	for _, existing := range m.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// SetImage attaches multimodal image data.
func (m *Metadata) SetImage(data, description string) {
	m.ImageData = data
	m.ImageDescription = description
}

// Entry is a single memory.
//
// Entries are mutable only through the memory manager; access
// recording updates recency, access count, and importance.
type Entry struct {
	// ID uniquely identifies the memory.
	ID MemoryID `json:"id"`
	// Content is the remembered text.
	Content string `json:"content"`
	// MemoryType selects retention semantics.
	MemoryType MemoryType `json:"memory_type"`
	// Embedding is the optional semantic-search vector.
	Embedding []float32 `json:"embedding,omitempty"`
	// Metadata annotates the entry.
	Metadata Metadata `json:"metadata"`
	// CreatedAt is when the memory was stored.
	CreatedAt time.Time `json:"created_at"`
	// LastAccessed is when the memory was last read.
	LastAccessed time.Time `json:"last_accessed"`
	// AccessCount counts reads.
	AccessCount int `json:"access_count"`
	// ImportanceScore in [0, 1] scales decay.
	ImportanceScore float32 `json:"importance_score"`
	// SessionID scopes working memories to a session.
	SessionID string `json:"session_id,omitempty"`
	// RelatedMemories links to associated entries.
	RelatedMemories []MemoryID `json:"related_memories,omitempty"`
}

// NewEntry creates a memory with medium importance.
func NewEntry(content string, memoryType MemoryType, sessionID string) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:              NewMemoryID(),
		Content:         content,
		MemoryType:      memoryType,
		Metadata:        NewMetadata(),
		CreatedAt:       now,
		LastAccessed:    now,
		ImportanceScore: 0.5,
		SessionID:       sessionID,
	}
}

// NewEntryWithImportance creates a memory with explicit importance,
// clamped to [0, 1].
func NewEntryWithImportance(content string, memoryType MemoryType, importance float32, sessionID string) *Entry {
	entry := NewEntry(content, memoryType, sessionID)
	entry.ImportanceScore = clamp01(importance)
	return entry
}

// RecordAccess updates recency and access count, and nudges importance
// upward (asymptotically toward 1).
func (e *Entry) RecordAccess() {
	e.LastAccessed = time.Now().UTC()
	e.AccessCount++

	boost := 0.01 * (1.0 - e.ImportanceScore)
	e.ImportanceScore = clamp01(e.ImportanceScore + boost)
}

// AddRelation links another memory if not already linked.
func (e *Entry) AddRelation(id MemoryID) {
	for _, existing := range e.RelatedMemories {
		if existing == id {
			return
		}
	}
	e.RelatedMemories = append(e.RelatedMemories, id)
}

// RemoveRelation unlinks a memory.
func (e *Entry) RemoveRelation(id MemoryID) {
	kept := e.RelatedMemories[:0]
	for _, existing := range e.RelatedMemories {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	e.RelatedMemories = kept
}

// CalculateDecay computes the retention score at the given time.
//
// The score combines an age component (exponential decay with a 30-day
// time constant), a recency component (7-day time constant), and a
// log-access-count boost, all scaled
// by importance. Always in [0, 1].
func (e *Entry) CalculateDecay(now time.Time) float32 {
	ageSeconds := now.Sub(e.CreatedAt).Seconds()
	recencySeconds := now.Sub(e.LastAccessed).Seconds()

	ageDecay := math.Exp(-ageSeconds / 86400.0 / 30.0)
	recencyDecay := math.Exp(-recencySeconds / 86400.0 / 7.0)
	accessBoost := math.Max(math.Log(float64(e.AccessCount)), 0) / 10.0

	score := (ageDecay*0.3 + recencyDecay*0.5 + accessBoost*0.2) * float64(e.ImportanceScore)
	return clamp01(float32(score))
}

// ShouldForget reports whether the decay score has fallen below the
// threshold.
func (e *Entry) ShouldForget(threshold float32, now time.Time) bool {
	return e.CalculateDecay(now) < threshold
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Query describes a memory retrieval request.
type Query struct {
	// Query is the search text.
	Query string
	// MemoryTypes filters candidates (nil means all types).
	MemoryTypes []MemoryType
	// Limit caps the result count.
	Limit int
	// MinSimilarity filters results below the threshold.
	MinSimilarity float32
	// SessionID filters to one session.
	SessionID string
	// Tags filters to entries carrying any of the tags.
	Tags []string
	// IncludeRelated attaches linked memories to each result.
	IncludeRelated bool
}

// NewQuery creates a query with the default limit and threshold.
func NewQuery(text string) Query {
	return Query{Query: text, Limit: 10, MinSimilarity: 0.5}
}

// WithTypes filters by memory types.
func (q Query) WithTypes(memoryTypes ...MemoryType) Query {
	q.MemoryTypes = memoryTypes
	return q
}

// WithLimit caps the result count.
func (q Query) WithLimit(limit int) Query {
	q.Limit = limit
	return q
}

// WithMinSimilarity sets the similarity threshold, clamped to [0, 1].
func (q Query) WithMinSimilarity(threshold float32) Query {
	q.MinSimilarity = clamp01(threshold)
	return q
}

// WithSession filters by session.
func (q Query) WithSession(sessionID string) Query {
	q.SessionID = sessionID
	return q
}

// WithTags filters by tags.
func (q Query) WithTags(tags ...string) Query {
	q.Tags = tags
	return q
}

// WithRelated attaches related memories to results.
func (q Query) WithRelated() Query {
	q.IncludeRelated = true
	return q
}
