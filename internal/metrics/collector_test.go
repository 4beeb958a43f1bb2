package metrics

import (
	"testing"
	"time"
)

func TestRecordReadOutcome(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "agar_test_1"})
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}

	c.RecordReadOutcome("hit")
	c.RecordReadOutcome("miss")
	c.RecordReadOutcome("partial_hit")

	metricFamilies, err := c.registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestRecordAllocatorAssignmentUpdatesSnapshot(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "agar_test_2"})
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}

	c.RecordAllocatorAssignment(6)

	snapshot := c.GetMetrics()
	if snapshot["allocator_blocks_assigned"] != 6 {
		t.Errorf("GetMetrics()[allocator_blocks_assigned] = %v, want 6", snapshot["allocator_blocks_assigned"])
	}
}

func TestRecordBackendLatencyAndErrors(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "agar_test_3"})
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}

	c.RecordBackendLatency("us-east-1", 10*time.Millisecond, true)
	c.RecordBackendLatency("us-east-1", 2*time.Second, false)

	metricFamilies, err := c.registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Fatal("expected registered backend metrics")
	}
}

func TestDisabledCollectorDiscardsRecords(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}

	// Must not panic when disabled and no registry exists.
	c.RecordReadOutcome("hit")
	c.RecordAllocatorAssignment(3)
	c.RecordRecipeRequest()
	c.RecordBackendLatency("us-east-1", time.Millisecond, true)

	snapshot := c.GetMetrics()
	if snapshot["allocator_blocks_assigned"] != 3 {
		t.Errorf("expected the in-memory snapshot to still track assignment even when disabled, got %v", snapshot["allocator_blocks_assigned"])
	}
}
