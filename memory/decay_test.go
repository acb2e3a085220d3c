package memory_test

import (
	"testing"
	"time"

	"github.com/InfinitiBit/graphbit-go/memory"
)

func TestForceDecayForgetsEverythingUnprotected(t *testing.T) {
	storage := memory.NewInMemoryStorageWithCapacities(map[memory.MemoryType]int{
		memory.Working: 200,
	})
	for i := 0; i < 100; i++ {
		if err := storage.Store(memory.NewEntry("ephemeral", memory.Working, "")); err != nil {
			t.Fatal(err)
		}
	}

	config := memory.DefaultDecayConfig()
	config.Threshold = 0.5
	config.ImportanceProtection = 1.1 // nothing qualifies
	config.RecentAccessProtection = 0 // no recency shield
	manager := memory.NewDecayManager(config)

	stats := manager.ForceDecay(storage)

	if stats.TotalChecked != 100 {
		t.Errorf("total checked = %d, want 100", stats.TotalChecked)
	}
	if stats.Forgotten+stats.Retained+stats.Protected != stats.TotalChecked {
		t.Errorf("stats do not partition: %+v", stats)
	}
	// Fresh default-importance working memories score 0.4 < 0.5.
	if stats.Forgotten != 100 {
		t.Errorf("forgotten = %d, want 100", stats.Forgotten)
	}
	if storage.Count() != 0 {
		t.Errorf("%d forgotten memories still in storage", storage.Count())
	}
	if stats.ForgottenByType[memory.Working] != 100 {
		t.Errorf("forgotten_by_type = %v", stats.ForgottenByType)
	}
}

func TestDecayProtections(t *testing.T) {
	storage := memory.NewInMemoryStorage()

	important := memory.NewEntryWithImportance("critical", memory.Factual, 0.95, "")
	important.CreatedAt = time.Now().Add(-365 * 24 * time.Hour)
	important.LastAccessed = important.CreatedAt

	recent := memory.NewEntry("just used", memory.Working, "")

	doomed := memory.NewEntry("forgettable", memory.Working, "")
	doomed.CreatedAt = time.Now().Add(-365 * 24 * time.Hour)
	doomed.LastAccessed = doomed.CreatedAt

	for _, e := range []*memory.Entry{important, recent, doomed} {
		if err := storage.Store(e); err != nil {
			t.Fatal(err)
		}
	}

	config := memory.DefaultDecayConfig()
	config.Threshold = 0.5
	manager := memory.NewDecayManager(config)

	stats := manager.ForceDecay(storage)

	if stats.Protected != 2 {
		t.Errorf("protected = %d, want 2 (importance + recency)", stats.Protected)
	}
	if stats.Forgotten != 1 {
		t.Errorf("forgotten = %d, want 1", stats.Forgotten)
	}
	if _, ok := storage.Get(important.ID); !ok {
		t.Error("importance-protected memory forgotten")
	}
	if _, ok := storage.Get(recent.ID); !ok {
		t.Error("recently accessed memory forgotten")
	}
	if _, ok := storage.Get(doomed.ID); ok {
		t.Error("stale memory survived")
	}
}

func TestDecayDisabled(t *testing.T) {
	storage := memory.NewInMemoryStorage()
	if err := storage.Store(memory.NewEntry("kept", memory.Working, "")); err != nil {
		t.Fatal(err)
	}

	manager := memory.NewDecayManager(memory.DisabledDecayConfig())
	if manager.ShouldRunDecay() {
		t.Error("disabled decay should never be due")
	}
	stats := manager.RunDecay(storage)
	if stats.TotalChecked != 0 {
		t.Errorf("disabled decay checked %d memories", stats.TotalChecked)
	}
	if storage.Count() != 1 {
		t.Error("disabled decay deleted memories")
	}
}

func TestPerTypeThresholds(t *testing.T) {
	config := memory.DefaultDecayConfig()
	config.SetTypeThreshold(memory.Working, 0.9)

	if got := config.ThresholdFor(memory.Working); got != 0.9 {
		t.Errorf("working threshold = %f", got)
	}
	if got := config.ThresholdFor(memory.Factual); got != config.Threshold {
		t.Errorf("factual threshold = %f, want global %f", got, config.Threshold)
	}
}

func TestDecayStatsRates(t *testing.T) {
	stats := memory.NewDecayStats()
	stats.TotalChecked = 100
	stats.Forgotten = 30
	stats.Retained = 60
	stats.Protected = 10

	if r := stats.RetentionRate(); r < 0.59 || r > 0.61 {
		t.Errorf("retention rate = %f", r)
	}
	if r := stats.ForgettingRate(); r < 0.29 || r > 0.31 {
		t.Errorf("forgetting rate = %f", r)
	}
}
