package types_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/InfinitiBit/graphbit-go/types"
)

func TestAcquireReleasePermits(t *testing.T) {
	manager := types.NewConcurrencyManager(4, map[string]int64{"agent": 2})

	permits, err := manager.AcquirePermits(context.Background(), types.TaskInfo{
		NodeType: "agent",
		TaskID:   types.NewNodeID(),
	})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	stats := manager.Stats()
	if stats.ActiveTasks != 1 {
		t.Errorf("active tasks = %d, want 1", stats.ActiveTasks)
	}
	if stats.ActiveByType["agent"] != 1 {
		t.Errorf("active agent tasks = %d, want 1", stats.ActiveByType["agent"])
	}

	permits.Release()
	permits.Release() // idempotent

	stats = manager.Stats()
	if stats.ActiveTasks != 0 {
		t.Errorf("active tasks after release = %d, want 0", stats.ActiveTasks)
	}
	if stats.TotalAcquired != stats.TotalReleased {
		t.Errorf("acquired (%d) != released (%d) at quiescence", stats.TotalAcquired, stats.TotalReleased)
	}
}

func TestPerKindLimitBlocks(t *testing.T) {
	manager := types.NewConcurrencyManager(10, map[string]int64{"agent": 1})

	held, err := manager.AcquirePermits(context.Background(), types.TaskInfo{NodeType: "agent", TaskID: types.NewNodeID()})
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := manager.AcquirePermits(ctx, types.TaskInfo{NodeType: "agent", TaskID: types.NewNodeID()}); err == nil {
		t.Fatal("second agent acquire should block until cancellation")
	}

	// Other kinds only contend on the global pool.
	other, err := manager.AcquirePermits(context.Background(), types.TaskInfo{NodeType: "http", TaskID: types.NewNodeID()})
	if err != nil {
		t.Fatalf("http acquire failed: %v", err)
	}
	other.Release()
	held.Release()
}

func TestPermitConservationUnderLoad(t *testing.T) {
	manager := types.NewConcurrencyManager(4, map[string]int64{"worker": 2})

	var wg sync.WaitGroup
	var running, peak atomic.Int64

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			permits, err := manager.AcquirePermits(context.Background(), types.TaskInfo{
				NodeType: "worker",
				TaskID:   types.NewNodeID(),
			})
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer permits.Release()

			current := running.Add(1)
			for {
				observed := peak.Load()
				if current <= observed || peak.CompareAndSwap(observed, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("observed %d concurrent workers, limit is 2", got)
	}

	stats := manager.Stats()
	if stats.TotalAcquired != 32 || stats.TotalReleased != 32 {
		t.Errorf("acquired/released = %d/%d, want 32/32", stats.TotalAcquired, stats.TotalReleased)
	}
	if stats.ActiveTasks != 0 {
		t.Errorf("active tasks at quiescence = %d, want 0", stats.ActiveTasks)
	}
}

func TestGlobalLimitAppliesWithoutKindLimit(t *testing.T) {
	manager := types.NewConcurrencyManager(1, nil)

	held, err := manager.AcquirePermits(context.Background(), types.TaskInfo{NodeType: "anything", TaskID: types.NewNodeID()})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := manager.AcquirePermits(ctx, types.TaskInfo{NodeType: "other", TaskID: types.NewNodeID()}); err == nil {
		t.Fatal("global pool exhausted; acquire should fail on cancellation")
	}
	held.Release()
}
