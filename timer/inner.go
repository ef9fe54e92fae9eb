package timer

import (
	"log/slog"
	"time"
)

// inner is the single background actor backing a Wheel[T]. It owns the
// slot ring exclusively — no lock is needed because every mutation
// arrives serialized over cmdCh — and is the only goroutine that ever
// reads or writes wq.
//
// Because the wheel's round never rotates, wq is addressed by absolute
// slot index (0..slots-1) rather than by index modulo slots: tickIdx only
// ever increases and a tick past the last slot is a silent no-op, which
// is how an exhausted wheel drains without error.
type inner[T any] struct {
	slots        uint32
	slotDuration time.Duration
	start        time.Time

	wq      [][]Meta[T]
	tickIdx int

	cmdCh  <-chan *wheelCmd[T]
	tickCh chan<- []Meta[T]
	done   chan struct{}
	quit   <-chan struct{}

	logger *slog.Logger
}

func (in *inner[T]) run() {
	defer close(in.done)
	for {
		select {
		case cmd, ok := <-in.cmdCh:
			if !ok {
				return
			}
			in.handle(cmd)
		case <-in.quit:
			return
		}
	}
}

func (in *inner[T]) handle(cmd *wheelCmd[T]) {
	switch cmd.kind {
	case cmdTick:
		in.onTick()
	case cmdAdd:
		in.onAdd(cmd.meta)
	case cmdBatchAdd:
		in.onBatchAdd(cmd.batch)
	case cmdCancel:
		in.onCancel(cmd.id, cmd.slotHint)
	case cmdAccelerate:
		in.onAccelerate(cmd.id, cmd.slotHint, cmd.delta)
	case cmdDelay:
		in.onDelay(cmd.id, cmd.slotHint, cmd.delta)
	case cmdTrigger:
		in.onTrigger(cmd.id, cmd.slotHint)
	}
}

func (in *inner[T]) onTick() {
	if in.tickIdx >= int(in.slots) {
		in.logger.Debug("timer: tick past last slot, wheel exhausted")
		return
	}
	batch := in.wq[in.tickIdx]
	in.wq[in.tickIdx] = nil
	in.tickIdx++
	if len(batch) == 0 {
		return
	}
	in.deliver(batch)
}

// deliver sends a batch to the Proxy, giving up only if the wheel is
// being shut down — a full delivery channel is expected backpressure,
// not an error, so this blocks rather than drops.
func (in *inner[T]) deliver(batch []Meta[T]) {
	select {
	case in.tickCh <- batch:
	case <-in.quit:
	}
}

func (in *inner[T]) onAdd(meta Meta[T]) {
	slot := int(findSlot(in.start, in.slotDuration, meta.End))
	in.enqueue(slot, meta)
}

func (in *inner[T]) onBatchAdd(batch []batchEntry[T]) {
	for _, e := range batch {
		in.enqueue(e.slot, e.meta)
	}
}

func (in *inner[T]) enqueue(slot int, meta Meta[T]) {
	if slot < 0 {
		slot = 0
	}
	if slot >= int(in.slots) {
		slot = int(in.slots) - 1
	}
	if slot < in.tickIdx {
		// Deadline has already been passed over by the ticker (can
		// happen under scheduling jitter); fire it on the next tick
		// instead of silently dropping it.
		slot = in.tickIdx
	}
	in.wq[slot] = append(in.wq[slot], meta)
}

func (in *inner[T]) takeFromSlot(id uint64, slot int) (Meta[T], bool) {
	if slot < 0 || slot >= int(in.slots) {
		return Meta[T]{}, false
	}
	bucket := in.wq[slot]
	for i, m := range bucket {
		if m.ID == id {
			in.wq[slot] = append(bucket[:i], bucket[i+1:]...)
			return m, true
		}
	}
	return Meta[T]{}, false
}

// indexInSlot locates id within slot without removing it, so a caller
// can mutate the Meta in place before deciding whether to move it.
func (in *inner[T]) indexInSlot(id uint64, slot int) (int, bool) {
	if slot < 0 || slot >= int(in.slots) {
		return 0, false
	}
	for i, m := range in.wq[slot] {
		if m.ID == id {
			return i, true
		}
	}
	return 0, false
}

// removeAt deletes the Meta at idx within slot and returns it. The
// caller must already hold a valid idx, e.g. from indexInSlot.
func (in *inner[T]) removeAt(slot, idx int) Meta[T] {
	bucket := in.wq[slot]
	m := bucket[idx]
	in.wq[slot] = append(bucket[:idx], bucket[idx+1:]...)
	return m
}

func (in *inner[T]) onCancel(id uint64, slotHint int) {
	in.takeFromSlot(id, slotHint)
}

// onAccelerate moves the Meta to its new slot only when the new
// deadline actually falls in an earlier slot than slotHint; otherwise
// the End time is still updated in place but the Meta keeps its
// position in slotHint's queue, preserving same-slot firing order.
func (in *inner[T]) onAccelerate(id uint64, slotHint int, delta time.Duration) {
	idx, ok := in.indexInSlot(id, slotHint)
	if !ok {
		return
	}
	newEnd := in.wq[slotHint][idx].End.Add(-delta)
	in.wq[slotHint][idx].End = newEnd
	newSlot := int(findSlot(in.start, in.slotDuration, newEnd))
	if newSlot < slotHint {
		meta := in.removeAt(slotHint, idx)
		in.enqueue(newSlot, meta)
	}
}

// onDelay is onAccelerate's mirror: the Meta only moves when the new
// deadline falls in a later slot than slotHint.
func (in *inner[T]) onDelay(id uint64, slotHint int, delta time.Duration) {
	idx, ok := in.indexInSlot(id, slotHint)
	if !ok {
		return
	}
	newEnd := in.wq[slotHint][idx].End.Add(delta)
	in.wq[slotHint][idx].End = newEnd
	newSlot := int(findSlot(in.start, in.slotDuration, newEnd))
	if newSlot > slotHint {
		meta := in.removeAt(slotHint, idx)
		in.enqueue(newSlot, meta)
	}
}

func (in *inner[T]) onTrigger(id uint64, slotHint int) {
	meta, ok := in.takeFromSlot(id, slotHint)
	if !ok {
		return
	}
	meta.End = time.Now()
	in.deliver([]Meta[T]{meta})
}
