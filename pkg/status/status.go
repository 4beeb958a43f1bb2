// Package status reports process-level status for the admin /status surface:
// key count, total assigned cached blocks, and the last reallocation time.
package status

import (
	"sync"
	"time"
)

// SystemStatus is the snapshot served by the admin /status endpoint.
type SystemStatus struct {
	KeysTracked      int           `json:"keys_tracked"`
	BlocksAssigned   int           `json:"blocks_assigned"`
	Budget           int           `json:"budget"`
	LastReallocation time.Time     `json:"last_reallocation"`
	Uptime           time.Duration `json:"uptime"`
}

// Tracker holds the values that feed a SystemStatus snapshot, updated through
// SetAllocatorStatus (cmd/proxy copies the allocator's status in on a ticker).
type Tracker struct {
	mu        sync.RWMutex
	startedAt time.Time
	snapshot  SystemStatus
}

// NewTracker builds a status tracker, recording the current time as process
// start for uptime reporting.
func NewTracker() *Tracker {
	return &Tracker{startedAt: time.Now()}
}

// SetAllocatorStatus records the allocator's last reallocation snapshot.
func (t *Tracker) SetAllocatorStatus(keysTracked, blocksAssigned, budget int, lastReallocation time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot.KeysTracked = keysTracked
	t.snapshot.BlocksAssigned = blocksAssigned
	t.snapshot.Budget = budget
	t.snapshot.LastReallocation = lastReallocation
}

// Snapshot returns the current SystemStatus, with Uptime computed relative to
// Tracker construction.
func (t *Tracker) Snapshot() SystemStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snapshot
	s.Uptime = time.Since(t.startedAt)
	return s
}
