package memory

import (
	"sort"
	"sync"

	"github.com/InfinitiBit/graphbit-go/embeddings"
)

// vectorEntry pairs a memory with its embedding inside the index.
type vectorEntry struct {
	memoryID  MemoryID
	embedding []float32
}

// SimilarityMatch is one vector search hit.
type SimilarityMatch struct {
	// MemoryID identifies the matched memory.
	MemoryID MemoryID
	// Score is the cosine similarity to the query.
	Score float64
}

// VectorIndex is an in-process brute-force cosine-similarity index.
//
// Suitable for moderate memory counts (thousands); a purpose-built ANN
// index should replace it beyond that. Reads inside Search observe all
// insertions completed before the search started.
type VectorIndex struct {
	mu      sync.RWMutex
	entries []vectorEntry
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

// Insert adds an embedding for a memory.
func (v *VectorIndex) Insert(id MemoryID, embedding []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = append(v.entries, vectorEntry{memoryID: id, embedding: embedding})
}

// Update replaces the embedding for a memory, inserting if absent.
func (v *VectorIndex) Update(id MemoryID, embedding []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.entries {
		if v.entries[i].memoryID == id {
			v.entries[i].embedding = embedding
			return
		}
	}
	v.entries = append(v.entries, vectorEntry{memoryID: id, embedding: embedding})
}

// Remove deletes a memory's embedding.
func (v *VectorIndex) Remove(id MemoryID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.entries[:0]
	for _, entry := range v.entries {
		if entry.memoryID != id {
			kept = append(kept, entry)
		}
	}
	v.entries = kept
}

// Clear empties the index.
func (v *VectorIndex) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = nil
}

// Len returns the number of indexed embeddings.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Search returns up to topK matches with similarity >= threshold, in
// descending score order.
func (v *VectorIndex) Search(queryEmbedding []float32, topK int, threshold float64) []SimilarityMatch {
	v.mu.RLock()
	defer v.mu.RUnlock()

	matches := make([]SimilarityMatch, 0, topK)
	for _, entry := range v.entries {
		similarity, err := embeddings.CosineSimilarity(queryEmbedding, entry.embedding)
		if err != nil {
			continue
		}
		score := float64(similarity)
		if score >= threshold {
			matches = append(matches, SimilarityMatch{MemoryID: entry.memoryID, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
