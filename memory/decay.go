package memory

import (
	"time"
)

// DecayConfig controls when and how aggressively memories are
// forgotten.
type DecayConfig struct {
	// Enabled turns decay on.
	Enabled bool `json:"enabled"`
	// Threshold is the global decay-score floor; memories below it are
	// forgotten unless protected.
	Threshold float32 `json:"threshold"`
	// CheckInterval is how often the periodic decay scan runs.
	CheckInterval time.Duration `json:"check_interval_seconds"`
	// TypeThresholds overrides the global threshold per type.
	TypeThresholds map[MemoryType]float32 `json:"type_thresholds"`
	// RecentAccessProtection shields memories accessed within the
	// window.
	RecentAccessProtection time.Duration `json:"recent_access_protection_seconds"`
	// ImportanceProtection shields memories at or above the importance
	// score.
	ImportanceProtection float32 `json:"importance_protection_threshold"`
}

// DefaultDecayConfig returns the standard decay policy.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		Enabled:                true,
		Threshold:              0.3,
		CheckInterval:          time.Hour,
		TypeThresholds:         make(map[MemoryType]float32, 4),
		RecentAccessProtection: 24 * time.Hour,
		ImportanceProtection:   0.8,
	}
}

// ConservativeDecayConfig keeps more memories.
func ConservativeDecayConfig() DecayConfig {
	cfg := DefaultDecayConfig()
	cfg.Threshold = 0.1
	cfg.CheckInterval = 2 * time.Hour
	cfg.RecentAccessProtection = 48 * time.Hour
	cfg.ImportanceProtection = 0.7
	return cfg
}

// AggressiveDecayConfig forgets more eagerly.
func AggressiveDecayConfig() DecayConfig {
	cfg := DefaultDecayConfig()
	cfg.Threshold = 0.5
	cfg.CheckInterval = 30 * time.Minute
	cfg.RecentAccessProtection = 12 * time.Hour
	cfg.ImportanceProtection = 0.9
	return cfg
}

// DisabledDecayConfig turns decay off entirely.
func DisabledDecayConfig() DecayConfig {
	return DecayConfig{ImportanceProtection: 1.0, TypeThresholds: make(map[MemoryType]float32)}
}

// SetTypeThreshold overrides the threshold for one type, clamped to
// [0, 1].
func (c *DecayConfig) SetTypeThreshold(memoryType MemoryType, threshold float32) {
	if c.TypeThresholds == nil {
		c.TypeThresholds = make(map[MemoryType]float32, 4)
	}
	c.TypeThresholds[memoryType] = clamp01(threshold)
}

// ThresholdFor returns the effective threshold for a type.
func (c *DecayConfig) ThresholdFor(memoryType MemoryType) float32 {
	if threshold, ok := c.TypeThresholds[memoryType]; ok {
		return threshold
	}
	return c.Threshold
}

// DecayStats summarizes one decay run.
type DecayStats struct {
	// TotalChecked counts memories examined.
	TotalChecked int `json:"total_checked"`
	// Forgotten counts memories deleted.
	Forgotten int `json:"forgotten"`
	// Retained counts memories kept on score.
	Retained int `json:"retained"`
	// Protected counts memories shielded from decay.
	Protected int `json:"protected"`
	// ForgottenByType breaks deletions down per type.
	ForgottenByType map[MemoryType]int `json:"forgotten_by_type"`
	// ExecutionTime is how long the scan took.
	ExecutionTime time.Duration `json:"execution_time_ms"`
}

// NewDecayStats creates empty stats.
func NewDecayStats() DecayStats {
	return DecayStats{ForgottenByType: make(map[MemoryType]int, 4)}
}

// RetentionRate returns retained/checked.
func (s DecayStats) RetentionRate() float32 {
	if s.TotalChecked == 0 {
		return 0
	}
	return float32(s.Retained) / float32(s.TotalChecked)
}

// ForgettingRate returns forgotten/checked.
func (s DecayStats) ForgettingRate() float32 {
	if s.TotalChecked == 0 {
		return 0
	}
	return float32(s.Forgotten) / float32(s.TotalChecked)
}

// DecayManager periodically scans storage and forgets below-threshold,
// unprotected memories.
type DecayManager struct {
	config    DecayConfig
	lastCheck time.Time
}

// NewDecayManager creates a manager with the given policy.
func NewDecayManager(config DecayConfig) *DecayManager {
	return &DecayManager{config: config, lastCheck: time.Now().UTC()}
}

// Config returns the current policy.
func (d *DecayManager) Config() DecayConfig { return d.config }

// UpdateConfig replaces the policy.
func (d *DecayManager) UpdateConfig(config DecayConfig) { d.config = config }

// ShouldRunDecay reports whether the check interval has elapsed.
func (d *DecayManager) ShouldRunDecay() bool {
	if !d.config.Enabled {
		return false
	}
	return time.Since(d.lastCheck) >= d.config.CheckInterval
}

// RunDecay scans storage, deleting every memory whose decay score is
// below its type threshold and which is neither recently accessed nor
// above the importance protection.
func (d *DecayManager) RunDecay(storage Storage) DecayStats {
	if !d.config.Enabled {
		return NewDecayStats()
	}

	started := time.Now()
	now := started.UTC()
	stats := NewDecayStats()

	all := storage.ListAll()
	toDelete := make([]MemoryID, 0, len(all)/10)

	for _, entry := range all {
		stats.TotalChecked++

		if d.isProtected(entry, now) {
			stats.Protected++
			continue
		}

		threshold := d.config.ThresholdFor(entry.MemoryType)
		if entry.ShouldForget(threshold, now) {
			toDelete = append(toDelete, entry.ID)
			stats.Forgotten++
			stats.ForgottenByType[entry.MemoryType]++
		} else {
			stats.Retained++
		}
	}

	for _, id := range toDelete {
		storage.Delete(id)
	}

	d.lastCheck = now
	stats.ExecutionTime = time.Since(started)
	return stats
}

// ForceDecay runs a scan regardless of the enabled flag and interval.
func (d *DecayManager) ForceDecay(storage Storage) DecayStats {
	originalEnabled := d.config.Enabled
	d.config.Enabled = true
	stats := d.RunDecay(storage)
	d.config.Enabled = originalEnabled
	return stats
}

// ForgetMemories deletes specific memories, returning how many existed.
func (d *DecayManager) ForgetMemories(storage Storage, ids []MemoryID) int {
	forgotten := 0
	for _, id := range ids {
		if storage.Delete(id) {
			forgotten++
		}
	}
	return forgotten
}

func (d *DecayManager) isProtected(entry *Entry, now time.Time) bool {
	if entry.ImportanceScore >= d.config.ImportanceProtection {
		return true
	}
	if now.Sub(entry.LastAccessed) < d.config.RecentAccessProtection {
		return true
	}
	return false
}
