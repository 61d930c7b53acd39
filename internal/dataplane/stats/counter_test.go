package stats

import (
	"testing"

	"paioctl/internal/dataplane/core"
)

func TestCounterRecordAccumulatesOverallAndWindow(t *testing.T) {
	c := NewCounter(core.ContextTypeGeneral)
	c.Record(core.OperationType(1), 100)
	c.Record(core.OperationType(1), 50)

	snap := c.Snapshot()
	if snap.OpsOverall[1] != 2 {
		t.Fatalf("expected 2 ops overall at slot 1, got %d", snap.OpsOverall[1])
	}
	if snap.BytesOverall[1] != 150 {
		t.Fatalf("expected 150 bytes overall at slot 1, got %d", snap.BytesOverall[1])
	}
}

func TestCounterTickRotatesWindow(t *testing.T) {
	c := NewCounter(core.ContextTypeGeneral)
	c.Record(core.OperationType(0), 10)
	c.Tick()

	snap := c.Snapshot()
	if snap.OpsLastWindow[0] != 1 {
		t.Fatalf("expected last window to carry the pre-tick record, got %d", snap.OpsLastWindow[0])
	}

	c.Record(core.OperationType(0), 5)
	snap = c.Snapshot()
	if snap.OpsOverall[0] != 2 {
		t.Fatalf("overall total must survive a tick, got %d", snap.OpsOverall[0])
	}
}

func TestCounterIndexClampsOutOfRange(t *testing.T) {
	c := NewCounter(core.ContextTypeGeneral)
	c.Record(core.OperationType(999), 1)
	snap := c.Snapshot()
	if snap.OpsOverall[0] != 1 {
		t.Fatalf("out-of-range operation type should clamp to slot 0, got %d at slot 0", snap.OpsOverall[0])
	}
}

func TestCounterTotalOps(t *testing.T) {
	c := NewCounter(core.ContextTypePosix)
	c.Record(core.OperationType(1), 1)
	c.Record(core.OperationType(2), 1)
	c.Record(core.OperationType(3), 1)
	if c.TotalOps() != 3 {
		t.Fatalf("expected total of 3 ops, got %d", c.TotalOps())
	}
}

func TestSoftBudgetTryConsume(t *testing.T) {
	b := NewSoftBudget(100)
	if !b.TryConsume(60) {
		t.Fatalf("expected first consume of 60/100 to succeed")
	}
	if b.TryConsume(60) {
		t.Fatalf("expected second consume of 60 to overdraw a 100 allowance")
	}
	if b.Remaining() != 40 {
		t.Fatalf("expected 40 remaining, got %d", b.Remaining())
	}
}

func TestSoftBudgetReopen(t *testing.T) {
	b := NewSoftBudget(10)
	b.TryConsume(10)
	if b.Remaining() != 0 {
		t.Fatalf("expected 0 remaining before reopen, got %d", b.Remaining())
	}
	b.Reopen(50)
	if b.Remaining() != 50 {
		t.Fatalf("expected 50 remaining after reopen, got %d", b.Remaining())
	}
}
