package status

import (
	"testing"
	"time"
)

func TestTrackerSnapshotReflectsAllocatorState(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	tr.SetAllocatorStatus(2, 6, 6, now)

	s := tr.Snapshot()
	if s.KeysTracked != 2 || s.BlocksAssigned != 6 || s.Budget != 6 {
		t.Errorf("unexpected allocator fields: %+v", s)
	}
	if !s.LastReallocation.Equal(now) {
		t.Errorf("LastReallocation = %v, want %v", s.LastReallocation, now)
	}
	if s.Uptime <= 0 {
		t.Error("expected a positive uptime")
	}
}
