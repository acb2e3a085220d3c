package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/InfinitiBit/graphbit-go/embeddings"
	"github.com/InfinitiBit/graphbit-go/types"
)

// RetrievalResult is one retrieval hit.
type RetrievalResult struct {
	// Entry is the matched memory.
	Entry *Entry
	// Similarity is the match score in [0, 1].
	Similarity float32
	// Related holds linked memories when the query requested them.
	Related []*Entry
}

// Retriever finds memories matching a query, semantically when an
// embedding service is configured and by keyword overlap otherwise.
type Retriever struct {
	embeddingService *embeddings.Service
}

// NewRetriever creates a retriever. The embedding service may be nil,
// in which case retrieval falls back to keyword matching.
func NewRetriever(embeddingService *embeddings.Service) *Retriever {
	return &Retriever{embeddingService: embeddingService}
}

// Retrieve returns matches for the query sorted by descending
// similarity, truncated to the query limit. Candidates are first
// filtered by memory type, session, and tags.
func (r *Retriever) Retrieve(ctx context.Context, query Query, storage Storage) ([]RetrievalResult, error) {
	candidates := r.candidates(query, storage)
	if len(candidates) == 0 {
		return nil, nil
	}

	var results []RetrievalResult
	var err error
	if r.embeddingService != nil {
		results, err = r.semanticSearch(ctx, query, candidates)
	} else {
		results = r.keywordSearch(query, candidates)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}

	if query.IncludeRelated {
		for i := range results {
			results[i].Related = r.Related(results[i].Entry.ID, storage, 5)
		}
	}
	return results, nil
}

func (r *Retriever) candidates(query Query, storage Storage) []*Entry {
	var candidates []*Entry
	if len(query.MemoryTypes) > 0 {
		for _, memoryType := range query.MemoryTypes {
			candidates = append(candidates, storage.ListByType(memoryType)...)
		}
	} else {
		candidates = storage.ListAll()
	}

	if query.SessionID != "" {
		filtered := candidates[:0]
		for _, entry := range candidates {
			if entry.SessionID == query.SessionID {
				filtered = append(filtered, entry)
			}
		}
		candidates = filtered
	}

	if len(query.Tags) > 0 {
		filtered := candidates[:0]
		for _, entry := range candidates {
			for _, tag := range query.Tags {
				if entry.Metadata.HasTag(tag) {
					filtered = append(filtered, entry)
					break
				}
			}
		}
		candidates = filtered
	}
	return candidates
}

func (r *Retriever) semanticSearch(ctx context.Context, query Query, candidates []*Entry) ([]RetrievalResult, error) {
	queryEmbedding, err := r.embeddingService.EmbedText(ctx, query.Query)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "failed to generate query embedding")
	}

	results := make([]RetrievalResult, 0, len(candidates))
	for _, entry := range candidates {
		if entry.Embedding == nil {
			continue
		}
		similarity, err := embeddings.CosineSimilarity(queryEmbedding, entry.Embedding)
		if err != nil {
			continue
		}
		if similarity >= query.MinSimilarity {
			results = append(results, RetrievalResult{Entry: entry, Similarity: similarity})
		}
	}
	return results, nil
}

// keywordSearch scores candidates by the fraction of query words found
// in the content.
func (r *Retriever) keywordSearch(query Query, candidates []*Entry) []RetrievalResult {
	queryWords := strings.Fields(strings.ToLower(query.Query))
	if len(queryWords) == 0 {
		return nil
	}

	results := make([]RetrievalResult, 0, len(candidates))
	for _, entry := range candidates {
		content := strings.ToLower(entry.Content)
		matches := 0
		for _, word := range queryWords {
			if strings.Contains(content, word) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		similarity := float32(matches) / float32(len(queryWords))
		if similarity >= query.MinSimilarity {
			results = append(results, RetrievalResult{Entry: entry, Similarity: similarity})
		}
	}
	return results
}

// GetByID fetches a memory and records the access.
func (r *Retriever) GetByID(id MemoryID, storage Storage) (*Entry, bool) {
	entry, ok := storage.Get(id)
	if !ok {
		return nil, false
	}
	entry.RecordAccess()
	return entry, true
}

// Related returns up to limit memories linked from the given one.
func (r *Retriever) Related(id MemoryID, storage Storage, limit int) []*Entry {
	entry, ok := storage.Get(id)
	if !ok {
		return nil
	}
	related := make([]*Entry, 0, limit)
	for _, relatedID := range entry.RelatedMemories {
		if len(related) >= limit {
			break
		}
		if linked, ok := storage.Get(relatedID); ok {
			related = append(related, linked)
		}
	}
	return related
}

// FindSimilar returns memories of the same type similar to the given
// memory's embedding.
func (r *Retriever) FindSimilar(id MemoryID, storage Storage, limit int, minSimilarity float32) ([]RetrievalResult, error) {
	entry, ok := storage.Get(id)
	if !ok {
		return nil, types.MemoryError("memory not found: %s", id)
	}
	if entry.Embedding == nil {
		return nil, types.MemoryError("memory %s has no embedding", id)
	}

	results := make([]RetrievalResult, 0, limit)
	for _, candidate := range storage.ListByType(entry.MemoryType) {
		if candidate.ID == id || candidate.Embedding == nil {
			continue
		}
		similarity, err := embeddings.CosineSimilarity(entry.Embedding, candidate.Embedding)
		if err != nil {
			continue
		}
		if similarity >= minSimilarity {
			results = append(results, RetrievalResult{Entry: candidate, Similarity: similarity})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
