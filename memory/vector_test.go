package memory_test

import (
	"math"
	"testing"

	"github.com/InfinitiBit/graphbit-go/memory"
)

func TestVectorIndexSearch(t *testing.T) {
	index := memory.NewVectorIndex()

	first := memory.NewMemoryID()
	second := memory.NewMemoryID()
	third := memory.NewMemoryID()
	index.Insert(first, []float32{1, 0, 0})
	index.Insert(second, []float32{0, 1, 0})
	index.Insert(third, []float32{0.9, 0.1, 0})

	matches := index.Search([]float32{1, 0, 0}, 2, 0.5)
	if len(matches) != 2 {
		t.Fatalf("match count = %d, want 2", len(matches))
	}

	// Exact match first at ~1.0, then the near-neighbor at ~0.994.
	if matches[0].MemoryID != first {
		t.Errorf("first match = %s, want exact-match entry", matches[0].MemoryID)
	}
	if math.Abs(matches[0].Score-1.0) > 1e-4 {
		t.Errorf("exact-match score = %f, want ~1.0", matches[0].Score)
	}
	if matches[1].MemoryID != third {
		t.Errorf("second match = %s, want near neighbor", matches[1].MemoryID)
	}
	if math.Abs(matches[1].Score-0.994) > 0.005 {
		t.Errorf("near-neighbor score = %f, want ~0.994", matches[1].Score)
	}
}

func TestVectorIndexThreshold(t *testing.T) {
	index := memory.NewVectorIndex()
	id := memory.NewMemoryID()
	index.Insert(id, []float32{1, 0, 0})

	if matches := index.Search([]float32{0, 1, 0}, 10, 0.5); len(matches) != 0 {
		t.Errorf("orthogonal vector above 0.5 threshold: %v", matches)
	}
	matches := index.Search([]float32{1, 0, 0}, 10, 0.99)
	if len(matches) != 1 {
		t.Fatalf("identical vector filtered out")
	}
	if math.Abs(matches[0].Score-1.0) > 0.01 {
		t.Errorf("identical-vector score = %f", matches[0].Score)
	}
}

func TestVectorIndexUpdateRemoveClear(t *testing.T) {
	index := memory.NewVectorIndex()
	id := memory.NewMemoryID()

	index.Insert(id, []float32{1, 0})
	index.Update(id, []float32{0, 1})

	matches := index.Search([]float32{0, 1}, 10, 0.5)
	if len(matches) != 1 || matches[0].MemoryID != id {
		t.Errorf("update not applied: %v", matches)
	}

	// Update on a missing ID inserts.
	other := memory.NewMemoryID()
	index.Update(other, []float32{1, 0})
	if index.Len() != 2 {
		t.Errorf("index size = %d, want 2", index.Len())
	}

	index.Remove(id)
	if matches := index.Search([]float32{0, 1}, 10, 0.5); len(matches) != 0 {
		t.Errorf("removed entry still matched: %v", matches)
	}

	index.Clear()
	if index.Len() != 0 {
		t.Errorf("index size after clear = %d", index.Len())
	}
}

func TestVectorIndexSkipsMismatchedDimensions(t *testing.T) {
	index := memory.NewVectorIndex()
	index.Insert(memory.NewMemoryID(), []float32{1, 0, 0})
	index.Insert(memory.NewMemoryID(), []float32{1, 0})

	matches := index.Search([]float32{1, 0, 0}, 10, 0)
	if len(matches) != 1 {
		t.Errorf("mismatched-dimension entry not skipped: %v", matches)
	}
}
