package memory_test

import (
	"strings"
	"testing"

	"github.com/InfinitiBit/graphbit-go/memory"
)

func TestWorkingMemorySessionLifecycle(t *testing.T) {
	working := memory.NewWorkingMemory()
	storage := memory.NewInMemoryStorage()

	if working.IsSessionActive() {
		t.Fatal("no session should be active initially")
	}

	working.StartSession("session1")
	if !working.IsSessionActive() || working.SessionID() != "session1" {
		t.Fatalf("session not started: %q", working.SessionID())
	}

	if _, err := working.Store("Test memory", storage); err != nil {
		t.Fatal(err)
	}
	if got := working.CountSessionMemories(storage); got != 1 {
		t.Errorf("session memory count = %d", got)
	}

	ended := working.EndSession(storage)
	if ended != 1 {
		t.Errorf("end_session cleared %d, want 1", ended)
	}
	if working.IsSessionActive() {
		t.Error("session still active after end")
	}
	if storage.Count() != 0 {
		t.Errorf("storage count = %d after session end", storage.Count())
	}
}

func TestWorkingMemorySessionIsolation(t *testing.T) {
	working := memory.NewWorkingMemory()
	storage := memory.NewInMemoryStorage()

	working.StartSession("s1")
	if _, err := working.Store("s1 note", storage); err != nil {
		t.Fatal(err)
	}

	// A second session's memories stored directly.
	foreign := memory.NewEntry("s2 note", memory.Working, "s2")
	if err := storage.Store(foreign); err != nil {
		t.Fatal(err)
	}

	working.EndSession(storage)

	if got := len(storage.ListBySession("s1")); got != 0 {
		t.Errorf("s1 entries after end = %d", got)
	}
	if got := len(storage.ListBySession("s2")); got != 1 {
		t.Errorf("s2 entries = %d, want 1 (unaffected)", got)
	}
}

func TestWorkingMemoryContext(t *testing.T) {
	working := memory.NewWorkingMemory()
	storage := memory.NewInMemoryStorage()

	working.StartSession("s1")
	if got := working.SessionContext(storage); got != "No working memory available." {
		t.Errorf("empty context = %q", got)
	}

	if _, err := working.Store("First memory", storage); err != nil {
		t.Fatal(err)
	}
	if _, err := working.Store("Second memory", storage); err != nil {
		t.Fatal(err)
	}

	ctx := working.SessionContext(storage)
	if !strings.Contains(ctx, "First memory") || !strings.Contains(ctx, "Second memory") {
		t.Errorf("context missing memories: %q", ctx)
	}
}

func TestSessionMetadata(t *testing.T) {
	working := memory.NewWorkingMemory()
	working.StartSession("s1")

	working.SetSessionMetadata("user_id", "user123")
	working.SetSessionMetadata("language", "en")

	if v, ok := working.SessionMetadata("user_id"); !ok || v != "user123" {
		t.Errorf("user_id = %v, %t", v, ok)
	}

	all := working.AllSessionMetadata()
	if len(all) != 2 {
		t.Errorf("metadata size = %d", len(all))
	}

	working.ClearSessionMetadata()
	if _, ok := working.SessionMetadata("user_id"); ok {
		t.Error("metadata survived clear")
	}

	// Starting a new session also clears metadata.
	working.SetSessionMetadata("key", "value")
	working.StartSession("s2")
	if _, ok := working.SessionMetadata("key"); ok {
		t.Error("metadata leaked across sessions")
	}
}
