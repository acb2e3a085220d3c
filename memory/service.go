package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/InfinitiBit/graphbit-go/embeddings"
	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// FactMatch is one search hit from the fact service.
type FactMatch struct {
	// Record is the matched fact.
	Record *FactRecord
	// Score is the similarity to the query.
	Score float64
}

// AppliedDecision reports what the service did with one extracted
// fact.
type AppliedDecision struct {
	Decision Decision
	// MemoryID is the fact affected (zero for NOOP).
	MemoryID MemoryID
}

// Service is the scope-partitioned persistent memory API: it extracts
// facts from conversations, consolidates them against existing
// memories, and serves semantic search over the result.
//
// The processor and embedding service are optional: without a
// processor, Add stores nothing; without embeddings, Search falls back
// to keyword overlap.
type Service struct {
	mu sync.Mutex

	store     MetadataStore
	processor *Processor
	index     *VectorIndex
	embedding *embeddings.Service
}

// NewService creates a fact service over a metadata store.
func NewService(store MetadataStore, processor *Processor, embeddingService *embeddings.Service) *Service {
	return &Service{
		store:     store,
		processor: processor,
		index:     NewVectorIndex(),
		embedding: embeddingService,
	}
}

// Add extracts facts from the messages, decides how each relates to
// the scope's existing memories, and applies the decisions. Returns
// the applied decisions in order.
func (s *Service) Add(ctx context.Context, messages []llm.Message, scope Scope) ([]AppliedDecision, error) {
	if s.processor == nil {
		return nil, types.ConfigurationError("memory service has no LLM processor configured")
	}

	facts, err := s.processor.ExtractFacts(ctx, messages)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}

	existing, err := s.store.GetAll(ctx, scope)
	if err != nil {
		return nil, err
	}

	decisions, err := s.processor.DecideActions(ctx, facts, existing)
	if err != nil {
		return nil, err
	}

	applied := make([]AppliedDecision, 0, len(decisions))
	for _, decision := range decisions {
		result, err := s.apply(ctx, decision, scope)
		if err != nil {
			return applied, err
		}
		applied = append(applied, result)
	}
	return applied, nil
}

func (s *Service) apply(ctx context.Context, decision Decision, scope Scope) (AppliedDecision, error) {
	switch decision.Action {
	case ActionAdd:
		record := NewFactRecord(decision.Fact, scope)
		if err := s.store.Insert(ctx, record); err != nil {
			return AppliedDecision{}, err
		}
		if err := s.store.InsertHistory(ctx, &HistoryEntry{
			MemoryID:   record.ID,
			NewContent: record.Content,
			Action:     ActionAdd,
			Timestamp:  time.Now().UTC(),
		}); err != nil {
			return AppliedDecision{}, err
		}
		s.indexFact(ctx, record)
		return AppliedDecision{Decision: decision, MemoryID: record.ID}, nil

	case ActionUpdate:
		id, err := MemoryIDFromString(decision.TargetMemoryID)
		if err != nil {
			// The model hallucinated a target; degrade to NOOP.
			return AppliedDecision{Decision: Decision{Fact: decision.Fact, Action: ActionNoop}}, nil
		}
		old, err := s.store.Get(ctx, id)
		if err != nil {
			return AppliedDecision{Decision: Decision{Fact: decision.Fact, Action: ActionNoop}}, nil
		}
		if err := s.store.Update(ctx, id, decision.Fact); err != nil {
			return AppliedDecision{}, err
		}
		if err := s.store.InsertHistory(ctx, &HistoryEntry{
			MemoryID:   id,
			OldContent: old.Content,
			NewContent: decision.Fact,
			Action:     ActionUpdate,
			Timestamp:  time.Now().UTC(),
		}); err != nil {
			return AppliedDecision{}, err
		}
		updated := *old
		updated.Content = decision.Fact
		s.indexFact(ctx, &updated)
		return AppliedDecision{Decision: decision, MemoryID: id}, nil

	case ActionDelete:
		id, err := MemoryIDFromString(decision.TargetMemoryID)
		if err != nil {
			return AppliedDecision{Decision: Decision{Fact: decision.Fact, Action: ActionNoop}}, nil
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return AppliedDecision{}, err
		}
		s.index.Remove(id)
		return AppliedDecision{Decision: decision, MemoryID: id}, nil

	default:
		return AppliedDecision{Decision: decision}, nil
	}
}

// indexFact embeds and indexes a fact; embedding failures are
// non-fatal (the fact remains keyword-searchable).
func (s *Service) indexFact(ctx context.Context, record *FactRecord) {
	if s.embedding == nil {
		return
	}
	vector, err := s.embedding.EmbedText(ctx, record.Content)
	if err != nil {
		return
	}
	s.index.Update(record.ID, vector)
}

// Search returns up to limit facts in the scope ranked by similarity
// to the query.
func (s *Service) Search(ctx context.Context, query string, scope Scope, limit int) ([]FactMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.GetAll(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	if s.embedding != nil && s.index.Len() > 0 {
		return s.vectorSearch(ctx, query, records, limit)
	}
	return keywordSearchFacts(query, records, limit), nil
}

func (s *Service) vectorSearch(ctx context.Context, query string, scoped []*FactRecord, limit int) ([]FactMatch, error) {
	queryEmbedding, err := s.embedding.EmbedText(ctx, query)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "failed to embed search query")
	}

	inScope := make(map[MemoryID]*FactRecord, len(scoped))
	for _, record := range scoped {
		inScope[record.ID] = record
	}

	matches := s.index.Search(queryEmbedding, 0, 0)
	results := make([]FactMatch, 0, limit)
	for _, match := range matches {
		record, ok := inScope[match.MemoryID]
		if !ok {
			continue
		}
		results = append(results, FactMatch{Record: record, Score: match.Score})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func keywordSearchFacts(query string, records []*FactRecord, limit int) []FactMatch {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	results := make([]FactMatch, 0, len(records))
	for _, record := range records {
		content := strings.ToLower(record.Content)
		matches := 0
		for _, word := range words {
			if strings.Contains(content, word) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		results = append(results, FactMatch{
			Record: record,
			Score:  float64(matches) / float64(len(words)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Get returns one fact by ID.
func (s *Service) Get(ctx context.Context, id MemoryID) (*FactRecord, error) {
	return s.store.Get(ctx, id)
}

// GetAll returns every fact in the scope.
func (s *Service) GetAll(ctx context.Context, scope Scope) ([]*FactRecord, error) {
	return s.store.GetAll(ctx, scope)
}

// Update rewrites a fact's content and records the mutation.
func (s *Service) Update(ctx context.Context, id MemoryID, content string) error {
	old, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, id, content); err != nil {
		return err
	}
	if err := s.store.InsertHistory(ctx, &HistoryEntry{
		MemoryID:   id,
		OldContent: old.Content,
		NewContent: content,
		Action:     ActionUpdate,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		return err
	}
	updated := *old
	updated.Content = content
	s.indexFact(ctx, &updated)
	return nil
}

// Delete removes a fact; its history cascades away with it.
func (s *Service) Delete(ctx context.Context, id MemoryID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.index.Remove(id)
	return nil
}

// DeleteAll removes every fact in the scope, returning how many were
// deleted.
func (s *Service) DeleteAll(ctx context.Context, scope Scope) (int, error) {
	records, err := s.store.GetAll(ctx, scope)
	if err != nil {
		return 0, err
	}
	deleted, err := s.store.DeleteAll(ctx, scope)
	if err != nil {
		return 0, err
	}
	for _, record := range records {
		s.index.Remove(record.ID)
	}
	return deleted, nil
}

// History returns a fact's mutation records, oldest first.
func (s *Service) History(ctx context.Context, id MemoryID) ([]*HistoryEntry, error) {
	return s.store.GetHistory(ctx, id)
}
