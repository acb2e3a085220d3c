package memory_test

import (
	"testing"
	"time"

	"github.com/InfinitiBit/graphbit-go/memory"
)

func TestRecordAccess(t *testing.T) {
	entry := memory.NewEntry("user prefers dark mode", memory.Factual, "")

	if entry.AccessCount != 0 {
		t.Fatalf("new entry access count = %d", entry.AccessCount)
	}
	initialImportance := entry.ImportanceScore

	for i := 0; i < 5; i++ {
		entry.RecordAccess()
	}

	if entry.AccessCount != 5 {
		t.Errorf("access count = %d, want 5", entry.AccessCount)
	}
	if entry.ImportanceScore <= initialImportance {
		t.Error("importance did not increase with access")
	}
	if entry.ImportanceScore > 1 {
		t.Errorf("importance %f exceeded 1", entry.ImportanceScore)
	}
}

func TestImportanceClamped(t *testing.T) {
	low := memory.NewEntryWithImportance("x", memory.Working, -0.5, "")
	if low.ImportanceScore != 0 {
		t.Errorf("importance = %f, want clamp to 0", low.ImportanceScore)
	}
	high := memory.NewEntryWithImportance("x", memory.Working, 1.5, "")
	if high.ImportanceScore != 1 {
		t.Errorf("importance = %f, want clamp to 1", high.ImportanceScore)
	}
}

func TestCalculateDecayRange(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name  string
		setup func() *memory.Entry
	}{
		{"fresh entry", func() *memory.Entry {
			return memory.NewEntry("fresh", memory.Working, "")
		}},
		{"old unaccessed entry", func() *memory.Entry {
			e := memory.NewEntry("old", memory.Factual, "")
			e.CreatedAt = now.Add(-365 * 24 * time.Hour)
			e.LastAccessed = e.CreatedAt
			return e
		}},
		{"heavily accessed entry", func() *memory.Entry {
			e := memory.NewEntry("hot", memory.Semantic, "")
			e.AccessCount = 100000
			e.ImportanceScore = 1.0
			return e
		}},
		{"zero importance", func() *memory.Entry {
			e := memory.NewEntry("worthless", memory.Episodic, "")
			e.ImportanceScore = 0
			return e
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := tc.setup()
			decay := entry.CalculateDecay(now)
			if decay < 0 || decay > 1 {
				t.Errorf("decay = %f, outside [0, 1]", decay)
			}
		})
	}
}

func TestDecayDecreasesWithAge(t *testing.T) {
	now := time.Now().UTC()

	fresh := memory.NewEntry("same", memory.Factual, "")
	stale := memory.NewEntry("same", memory.Factual, "")
	stale.CreatedAt = now.Add(-60 * 24 * time.Hour)
	stale.LastAccessed = stale.CreatedAt

	if stale.CalculateDecay(now) >= fresh.CalculateDecay(now) {
		t.Error("older unaccessed memory should decay more")
	}
}

func TestShouldForget(t *testing.T) {
	now := time.Now().UTC()
	entry := memory.NewEntry("expiring", memory.Working, "")
	entry.CreatedAt = now.Add(-90 * 24 * time.Hour)
	entry.LastAccessed = entry.CreatedAt

	if !entry.ShouldForget(0.5, now) {
		t.Error("stale entry should fall below a 0.5 threshold")
	}
	if entry.ShouldForget(0.0, now) {
		t.Error("nothing falls below a zero threshold")
	}
}

func TestRelations(t *testing.T) {
	entry := memory.NewEntry("hub", memory.Semantic, "")
	other := memory.NewMemoryID()

	entry.AddRelation(other)
	entry.AddRelation(other) // no duplicates
	if len(entry.RelatedMemories) != 1 {
		t.Errorf("relations = %d, want 1", len(entry.RelatedMemories))
	}

	entry.RemoveRelation(other)
	if len(entry.RelatedMemories) != 0 {
		t.Errorf("relations after removal = %d", len(entry.RelatedMemories))
	}
}

func TestMetadataTags(t *testing.T) {
	meta := memory.NewMetadata()
	meta.AddTag("prefs")
	meta.AddTag("prefs")
	if len(meta.Tags) != 1 {
		t.Errorf("tags = %v", meta.Tags)
	}
	if !meta.HasTag("prefs") || meta.HasTag("other") {
		t.Error("tag lookup broken")
	}
}
