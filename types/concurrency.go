package types

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// TaskInfo describes an in-flight task for admission control and
// observability.
type TaskInfo struct {
	// NodeType is the admission class ("agent", "http", "transform", ...).
	NodeType string `json:"node_type"`
	// TaskID identifies the task.
	TaskID NodeID `json:"task_id"`
}

// ConcurrencyStats is a point-in-time snapshot of the concurrency
// manager's counters.
type ConcurrencyStats struct {
	// ActiveTasks is the number of currently-held permit sets.
	ActiveTasks int `json:"active_tasks"`
	// WaitingTasks is the number of acquisitions currently blocked.
	WaitingTasks int `json:"waiting_tasks"`
	// TotalAcquired counts permit sets handed out since creation.
	TotalAcquired uint64 `json:"total_acquired"`
	// TotalReleased counts permit sets returned since creation.
	TotalReleased uint64 `json:"total_released"`
	// AvgWaitTime is the mean time acquisitions spent blocked.
	AvgWaitTime time.Duration `json:"avg_wait_time_ms"`
	// ActiveByType breaks active tasks down by admission class.
	ActiveByType map[string]int `json:"active_by_type"`
}

// ConcurrencyManager provides global and per-kind admission control for
// node execution.
//
// Each dispatch acquires one permit from the global pool and one from
// its kind's pool (kinds without an explicit limit only consume the
// global permit). Acquisition is FIFO within a kind; no fairness is
// guaranteed across kinds. Permits must be released on every exit path,
// which Permits.Release guarantees by being idempotent.
type ConcurrencyManager struct {
	global  *semaphore.Weighted
	perKind map[string]*semaphore.Weighted

	mu     sync.Mutex
	active map[string]TaskInfo

	waiting        atomic.Int64
	acquired       atomic.Uint64
	released       atomic.Uint64
	totalWaitNanos atomic.Int64
}

// NewConcurrencyManager creates a manager with the given global permit
// pool size and per-kind capacities. A globalMax of 0 or less defaults
// to 64.
func NewConcurrencyManager(globalMax int64, perKind map[string]int64) *ConcurrencyManager {
	if globalMax <= 0 {
		globalMax = 64
	}
	kinds := make(map[string]*semaphore.Weighted, len(perKind))
	for kind, capacity := range perKind {
		if capacity > 0 {
			kinds[kind] = semaphore.NewWeighted(capacity)
		}
	}
	return &ConcurrencyManager{
		global:  semaphore.NewWeighted(globalMax),
		perKind: kinds,
		active:  make(map[string]TaskInfo),
	}
}

// Permits is a held admission token pair. Release returns the permits
// exactly once regardless of how many times it is called, so it is safe
// to defer unconditionally.
type Permits struct {
	release func()
	once    sync.Once
}

// Release returns the held permits. Idempotent.
func (p *Permits) Release() {
	if p == nil {
		return
	}
	p.once.Do(p.release)
}

// AcquirePermits blocks until both the global permit and the task
// kind's permit are available, or the context is cancelled. On success
// the returned Permits must be released by the caller.
func (m *ConcurrencyManager) AcquirePermits(ctx context.Context, task TaskInfo) (*Permits, error) {
	start := time.Now()
	m.waiting.Add(1)
	defer m.waiting.Add(-1)

	if err := m.global.Acquire(ctx, 1); err != nil {
		return nil, CancelledError("permit acquisition cancelled for %s task", task.NodeType)
	}

	kindSem := m.perKind[task.NodeType]
	if kindSem != nil {
		if err := kindSem.Acquire(ctx, 1); err != nil {
			m.global.Release(1)
			return nil, CancelledError("permit acquisition cancelled for %s task", task.NodeType)
		}
	}

	m.totalWaitNanos.Add(int64(time.Since(start)))
	m.acquired.Add(1)

	key := task.TaskID.String()
	m.mu.Lock()
	m.active[key] = task
	m.mu.Unlock()

	return &Permits{
		release: func() {
			m.mu.Lock()
			delete(m.active, key)
			m.mu.Unlock()

			if kindSem != nil {
				kindSem.Release(1)
			}
			m.global.Release(1)
			m.released.Add(1)
		},
	}, nil
}

// Stats snapshots the manager's counters.
func (m *ConcurrencyManager) Stats() ConcurrencyStats {
	m.mu.Lock()
	byType := make(map[string]int, 8)
	for _, task := range m.active {
		byType[task.NodeType]++
	}
	activeCount := len(m.active)
	m.mu.Unlock()

	acquired := m.acquired.Load()
	var avgWait time.Duration
	if acquired > 0 {
		avgWait = time.Duration(uint64(m.totalWaitNanos.Load()) / acquired)
	}

	return ConcurrencyStats{
		ActiveTasks:   activeCount,
		WaitingTasks:  int(m.waiting.Load()),
		TotalAcquired: acquired,
		TotalReleased: m.released.Load(),
		AvgWaitTime:   avgWait,
		ActiveByType:  byType,
	}
}
