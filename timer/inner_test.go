package timer

import (
	"log/slog"
	"testing"
	"time"
)

func newTestInner(slots uint32, slotDuration time.Duration, start time.Time) *inner[int] {
	return &inner[int]{
		slots:        slots,
		slotDuration: slotDuration,
		start:        start,
		wq:           make([][]Meta[int], slots),
		logger:       slog.Default(),
	}
}

// TestInnerAccelerateSameSlotPreservesOrder asserts spec.md's Accelerate
// invariant: the Meta only moves to a new slot when the new deadline
// actually falls in an earlier slot than slotHint. When it doesn't
// (the new deadline is still within the same slot), the Meta must keep
// its original position in that slot's queue instead of being pushed
// to the back.
func TestInnerAccelerateSameSlotPreservesOrder(t *testing.T) {
	start := time.Now()
	d := 10 * time.Millisecond
	in := newTestInner(10, d, start)

	first := NewMeta(start, start.Add(d+2*time.Millisecond), 1)  // slot 1
	second := NewMeta(start, start.Add(d+4*time.Millisecond), 2) // slot 1
	slot := int(findSlot(start, d, first.End))
	if slot != int(findSlot(start, d, second.End)) {
		t.Fatalf("test setup: first and second must land in the same slot")
	}
	in.enqueue(slot, first)
	in.enqueue(slot, second)

	// Accelerate "first" by 1ms: new end is still inside slot 1.
	in.onAccelerate(first.ID, slot, time.Millisecond)

	bucket := in.wq[slot]
	if len(bucket) != 2 {
		t.Fatalf("expected both metas to remain in slot %d, got %d", slot, len(bucket))
	}
	if bucket[0].ID != first.ID || bucket[1].ID != second.ID {
		t.Fatalf("accelerate within the same slot reordered the queue: got ids [%d %d], want [%d %d]",
			bucket[0].ID, bucket[1].ID, first.ID, second.ID)
	}
	wantEnd := first.End.Add(-time.Millisecond)
	if !bucket[0].End.Equal(wantEnd) {
		t.Fatalf("End not updated in place: got %v, want %v", bucket[0].End, wantEnd)
	}
}

// TestInnerAccelerateCrossSlotMoves confirms the Meta does move, to the
// back of its new slot, when Accelerate actually crosses a slot
// boundary.
func TestInnerAccelerateCrossSlotMoves(t *testing.T) {
	start := time.Now()
	d := 10 * time.Millisecond
	in := newTestInner(10, d, start)

	meta := NewMeta(start, start.Add(2*d+time.Millisecond), 1) // slot 2
	slot := int(findSlot(start, d, meta.End))
	in.enqueue(slot, meta)

	in.onAccelerate(meta.ID, slot, 5*time.Millisecond) // new end lands in slot 1

	if len(in.wq[slot]) != 0 {
		t.Fatalf("expected meta to leave slot %d, still has %d entries", slot, len(in.wq[slot]))
	}
	newSlot := slot - 1
	if len(in.wq[newSlot]) != 1 || in.wq[newSlot][0].ID != meta.ID {
		t.Fatalf("expected meta to land in slot %d, got %+v", newSlot, in.wq[newSlot])
	}
}

// TestInnerDelaySameSlotPreservesOrder mirrors the Accelerate case for
// Delay: no move, and no reordering, when the new deadline stays within
// slotHint.
func TestInnerDelaySameSlotPreservesOrder(t *testing.T) {
	start := time.Now()
	d := 10 * time.Millisecond
	in := newTestInner(10, d, start)

	first := NewMeta(start, start.Add(d+2*time.Millisecond), 1)
	second := NewMeta(start, start.Add(d+4*time.Millisecond), 2)
	slot := int(findSlot(start, d, first.End))
	in.enqueue(slot, first)
	in.enqueue(slot, second)

	// Delay "first" by 1ms: new end is still inside the same slot.
	in.onDelay(first.ID, slot, time.Millisecond)

	bucket := in.wq[slot]
	if len(bucket) != 2 {
		t.Fatalf("expected both metas to remain in slot %d, got %d", slot, len(bucket))
	}
	if bucket[0].ID != first.ID || bucket[1].ID != second.ID {
		t.Fatalf("delay within the same slot reordered the queue: got ids [%d %d], want [%d %d]",
			bucket[0].ID, bucket[1].ID, first.ID, second.ID)
	}
	wantEnd := first.End.Add(time.Millisecond)
	if !bucket[0].End.Equal(wantEnd) {
		t.Fatalf("End not updated in place: got %v, want %v", bucket[0].End, wantEnd)
	}
}

// TestInnerDelayCrossSlotMoves confirms the Meta moves when Delay
// actually crosses a slot boundary.
func TestInnerDelayCrossSlotMoves(t *testing.T) {
	start := time.Now()
	d := 10 * time.Millisecond
	in := newTestInner(10, d, start)

	meta := NewMeta(start, start.Add(d+time.Millisecond), 1) // slot 1
	slot := int(findSlot(start, d, meta.End))
	in.enqueue(slot, meta)

	in.onDelay(meta.ID, slot, 2*d) // new end lands well past slot 1

	if len(in.wq[slot]) != 0 {
		t.Fatalf("expected meta to leave slot %d, still has %d entries", slot, len(in.wq[slot]))
	}
	newSlot := int(findSlot(start, d, meta.End.Add(2*d)))
	if len(in.wq[newSlot]) != 1 || in.wq[newSlot][0].ID != meta.ID {
		t.Fatalf("expected meta to land in slot %d, got %+v", newSlot, in.wq[newSlot])
	}
}
