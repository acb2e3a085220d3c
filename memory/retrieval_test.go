package memory_test

import (
	"context"
	"testing"

	"github.com/InfinitiBit/graphbit-go/memory"
)

func seedStorage(t *testing.T) memory.Storage {
	t.Helper()
	storage := memory.NewInMemoryStorage()
	entries := []*memory.Entry{
		memory.NewEntry("User prefers dark mode in the editor", memory.Factual, ""),
		memory.NewEntry("User lives in Munich", memory.Factual, ""),
		memory.NewEntry("Discussed the quarterly report", memory.Episodic, ""),
	}
	entries[0].Metadata.AddTag("prefs")
	for _, e := range entries {
		if err := storage.Store(e); err != nil {
			t.Fatal(err)
		}
	}
	return storage
}

func TestKeywordRetrieval(t *testing.T) {
	retriever := memory.NewRetriever(nil) // no embeddings: keyword fallback
	storage := seedStorage(t)

	query := memory.NewQuery("dark mode").WithMinSimilarity(0.4)
	results, err := retriever.Retrieve(context.Background(), query, storage)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("result count = %d, want 1", len(results))
	}
	if results[0].Entry.Content != "User prefers dark mode in the editor" {
		t.Errorf("wrong result: %s", results[0].Entry.Content)
	}
	if results[0].Similarity < 0.99 {
		t.Errorf("full keyword overlap similarity = %f", results[0].Similarity)
	}
}

func TestRetrievalFilters(t *testing.T) {
	retriever := memory.NewRetriever(nil)
	storage := seedStorage(t)

	t.Run("type filter", func(t *testing.T) {
		query := memory.NewQuery("user").WithTypes(memory.Episodic).WithMinSimilarity(0.1)
		results, err := retriever.Retrieve(context.Background(), query, storage)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 0 {
			t.Errorf("episodic filter leaked factual entries: %d results", len(results))
		}
	})

	t.Run("tag filter", func(t *testing.T) {
		query := memory.NewQuery("user").WithTags("prefs").WithMinSimilarity(0.1)
		results, err := retriever.Retrieve(context.Background(), query, storage)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 {
			t.Fatalf("tag filter returned %d results", len(results))
		}
		if !results[0].Entry.Metadata.HasTag("prefs") {
			t.Error("untagged entry returned")
		}
	})

	t.Run("limit", func(t *testing.T) {
		query := memory.NewQuery("user").WithLimit(1).WithMinSimilarity(0.1)
		results, err := retriever.Retrieve(context.Background(), query, storage)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) > 1 {
			t.Errorf("limit ignored: %d results", len(results))
		}
	})
}

func TestGetByIDRecordsAccess(t *testing.T) {
	retriever := memory.NewRetriever(nil)
	storage := memory.NewInMemoryStorage()
	entry := memory.NewEntry("tracked", memory.Factual, "")
	if err := storage.Store(entry); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, ok := retriever.GetByID(entry.ID, storage); !ok {
			t.Fatal("entry not found")
		}
	}

	loaded, _ := storage.Get(entry.ID)
	if loaded.AccessCount != 3 {
		t.Errorf("access count = %d, want 3", loaded.AccessCount)
	}
}

func TestFindSimilar(t *testing.T) {
	retriever := memory.NewRetriever(nil)
	storage := memory.NewInMemoryStorage()

	anchor := memory.NewEntry("anchor", memory.Semantic, "")
	anchor.Embedding = []float32{1, 0, 0}
	close1 := memory.NewEntry("close", memory.Semantic, "")
	close1.Embedding = []float32{0.9, 0.1, 0}
	far := memory.NewEntry("far", memory.Semantic, "")
	far.Embedding = []float32{0, 1, 0}
	for _, e := range []*memory.Entry{anchor, close1, far} {
		if err := storage.Store(e); err != nil {
			t.Fatal(err)
		}
	}

	results, err := retriever.FindSimilar(anchor.ID, storage, 10, 0.5)
	if err != nil {
		t.Fatalf("find similar failed: %v", err)
	}
	if len(results) != 1 || results[0].Entry.ID != close1.ID {
		t.Errorf("unexpected similar set: %+v", results)
	}
}
