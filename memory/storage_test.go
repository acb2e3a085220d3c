package memory_test

import (
	"testing"

	"github.com/InfinitiBit/graphbit-go/memory"
)

func TestStorageRoundTrip(t *testing.T) {
	storage := memory.NewInMemoryStorage()
	entry := memory.NewEntry("user lives in Munich", memory.Factual, "")

	if err := storage.Store(entry); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	loaded, ok := storage.Get(entry.ID)
	if !ok {
		t.Fatal("entry not found after store")
	}
	if loaded.Content != entry.Content || loaded.MemoryType != memory.Factual {
		t.Errorf("entry mutated in storage: %+v", loaded)
	}

	if !storage.Delete(entry.ID) {
		t.Error("delete reported missing entry")
	}
	if storage.Delete(entry.ID) {
		t.Error("second delete reported success")
	}
}

func TestStorageCapacityEviction(t *testing.T) {
	storage := memory.NewInMemoryStorageWithCapacities(map[memory.MemoryType]int{
		memory.Working: 3,
	})

	var keeper *memory.Entry
	for i := 0; i < 3; i++ {
		entry := memory.NewEntry("memory", memory.Working, "")
		if i == 0 {
			// High importance plus accesses makes this one the most
			// retained.
			entry.ImportanceScore = 1.0
			entry.AccessCount = 50
			keeper = entry
		}
		if err := storage.Store(entry); err != nil {
			t.Fatal(err)
		}
	}

	// Capacity reached; the next store evicts the least retained.
	extra := memory.NewEntry("one more", memory.Working, "")
	if err := storage.Store(extra); err != nil {
		t.Fatal(err)
	}

	if got := storage.CountByType(memory.Working); got > 3 {
		t.Errorf("count_by_type = %d, exceeds capacity 3", got)
	}
	if _, ok := storage.Get(keeper.ID); !ok {
		t.Error("most-retained entry was evicted")
	}
	if _, ok := storage.Get(extra.ID); !ok {
		t.Error("newly stored entry missing")
	}
}

func TestStorageTypeAndSessionIndexes(t *testing.T) {
	storage := memory.NewInMemoryStorage()

	fact := memory.NewEntry("fact", memory.Factual, "")
	workA := memory.NewEntry("work a", memory.Working, "s1")
	workB := memory.NewEntry("work b", memory.Working, "s2")
	for _, e := range []*memory.Entry{fact, workA, workB} {
		if err := storage.Store(e); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(storage.ListByType(memory.Working)); got != 2 {
		t.Errorf("working entries = %d, want 2", got)
	}
	if got := len(storage.ListBySession("s1")); got != 1 {
		t.Errorf("session s1 entries = %d, want 1", got)
	}
	if storage.Count() != 3 {
		t.Errorf("total count = %d", storage.Count())
	}
}

func TestClearSessionIsolation(t *testing.T) {
	storage := memory.NewInMemoryStorage()

	for i := 0; i < 3; i++ {
		if err := storage.Store(memory.NewEntry("s1 memory", memory.Working, "s1")); err != nil {
			t.Fatal(err)
		}
	}
	other := memory.NewEntry("s2 memory", memory.Working, "s2")
	if err := storage.Store(other); err != nil {
		t.Fatal(err)
	}

	storage.ClearSession("s1")

	if got := len(storage.ListBySession("s1")); got != 0 {
		t.Errorf("session s1 entries after clear = %d", got)
	}
	if _, ok := storage.Get(other.ID); !ok {
		t.Error("other session's memory was affected")
	}
	if storage.CountByType(memory.Working) != 1 {
		t.Errorf("working count = %d, want 1", storage.CountByType(memory.Working))
	}
}

func TestClearType(t *testing.T) {
	storage := memory.NewInMemoryStorage()
	if err := storage.Store(memory.NewEntry("w", memory.Working, "s1")); err != nil {
		t.Fatal(err)
	}
	if err := storage.Store(memory.NewEntry("f", memory.Factual, "")); err != nil {
		t.Fatal(err)
	}

	storage.ClearType(memory.Working)

	if storage.CountByType(memory.Working) != 0 {
		t.Error("working entries survived ClearType")
	}
	if storage.CountByType(memory.Factual) != 1 {
		t.Error("factual entries affected by ClearType(working)")
	}
	if got := len(storage.ListBySession("s1")); got != 0 {
		t.Error("session index not cleaned up")
	}
}
