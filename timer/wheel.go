package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/relaygrid/gsfw-go/internal/metrics"
)

// Channel capacities, chosen to match spec.md §6: the control channel is
// small since the Inner actor processes it synchronously and the Proxy
// applies its own backpressure by blocking on send; the delivery channel
// is wider to absorb a burst of several ticks' worth of batches while the
// Proxy catches up.
const (
	cmdChanCapacity  = 4
	tickChanCapacity = 64
)

type cmdKind int

const (
	cmdTick cmdKind = iota
	cmdAdd
	cmdBatchAdd
	cmdCancel
	cmdAccelerate
	cmdDelay
	cmdTrigger
)

type batchEntry[T any] struct {
	meta Meta[T]
	slot int
}

// wheelCmd is the single message type carrying every variant of the
// Proxy->Inner control alphabet (spec.md §4.2): Tick, Add, BatchAdd,
// Cancel, Accelerate, Delay, Trigger. One struct with a kind tag is used
// instead of Go's nearest equivalent to a sum type (an interface with one
// implementation per variant); each command is still sent as a freshly
// allocated *wheelCmd.
type wheelCmd[T any] struct {
	kind     cmdKind
	meta     Meta[T]
	batch    []batchEntry[T]
	id       uint64
	slotHint int
	delta    time.Duration
}

// Wheel is the client-facing Proxy handle of spec.md §4.2. It holds the
// private id->Snapshot map and forwards every mutation to a background
// actor (unexported `inner[T]`) over a bounded control channel, receiving
// elapsed batches back over a dedicated delivery channel.
type Wheel[T any] struct {
	slots        uint32
	slotDuration time.Duration
	start        time.Time // frozen at construction; see package doc

	cmdCh  chan *wheelCmd[T]
	tickCh chan []Meta[T]
	done   chan struct{} // closed by the actor when it stops
	quit   chan struct{} // closed by Close to request a stop
	closer sync.Once

	mu        sync.Mutex
	snapshots map[uint64]Snapshot

	logger *slog.Logger
}

// NewWheel constructs a wheel of `slots` buckets of `slotDuration` width,
// anchored at `start`, and launches its background actor and ticker
// goroutines. `start` is typically time.Now(); it is never advanced for
// the lifetime of the wheel (see package doc), so the wheel accepts
// submissions only until start+slots*slotDuration elapses.
func NewWheel[T any](slots uint32, slotDuration time.Duration, start time.Time) *Wheel[T] {
	w := &Wheel[T]{
		slots:        slots,
		slotDuration: slotDuration,
		start:        start,
		cmdCh:        make(chan *wheelCmd[T], cmdChanCapacity),
		tickCh:       make(chan []Meta[T], tickChanCapacity),
		done:         make(chan struct{}),
		quit:         make(chan struct{}),
		snapshots:    make(map[uint64]Snapshot),
		logger:       slog.Default(),
	}
	in := &inner[T]{
		slots:        slots,
		slotDuration: slotDuration,
		start:        start,
		wq:           make([][]Meta[T], slots),
		cmdCh:        w.cmdCh,
		tickCh:       w.tickCh,
		done:         w.done,
		quit:         w.quit,
		logger:       w.logger,
	}
	go in.run()
	go w.runTicker()
	return w
}

// SetLogger overrides the wheel's logger (defaults to slog.Default()).
func (w *Wheel[T]) SetLogger(l *slog.Logger) { w.logger = l }

// Close stops the background actor and ticker. It does not drain or
// report pending timers; callers that need to reclaim in-flight payloads
// should do so before calling Close.
func (w *Wheel[T]) Close() {
	w.closer.Do(func() { close(w.quit) })
}

// Slots returns the wheel's slot count.
func (w *Wheel[T]) Slots() uint32 { return w.slots }

// SlotDuration returns the width of one slot.
func (w *Wheel[T]) SlotDuration() time.Duration { return w.slotDuration }

// RoundDuration returns slots*slotDuration.
func (w *Wheel[T]) RoundDuration() time.Duration {
	return w.slotDuration * time.Duration(w.slots)
}

// RoundEnd returns the instant beyond which every submission overflows.
// Because the wheel's start is frozen at construction, this value never
// changes for the life of the wheel.
func (w *Wheel[T]) RoundEnd() time.Time {
	return w.start.Add(w.RoundDuration())
}

func (w *Wheel[T]) runTicker() {
	delay := time.Until(w.start)
	if delay < 0 {
		delay = 0
	}
	first := time.NewTimer(delay)
	select {
	case <-first.C:
	case <-w.quit:
		first.Stop()
		return
	}
	w.sendTick()

	ticker := time.NewTicker(w.slotDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.sendTick()
		case <-w.quit:
			return
		}
	}
}

func (w *Wheel[T]) sendTick() {
	select {
	case w.cmdCh <- &wheelCmd[T]{kind: cmdTick}:
	case <-w.quit:
	}
}

// Dispatch schedules data to fire `duration` from now. It fails fast with
// ErrTimeElapse if the deadline is already past, or ErrOverflow if it
// falls beyond the wheel's round.
func (w *Wheel[T]) Dispatch(duration time.Duration, data T) (Snapshot, error) {
	return w.DispatchUntil(time.Now().Add(duration), data)
}

// DispatchUntil schedules data to fire at the instant end.
func (w *Wheel[T]) DispatchUntil(end time.Time, data T) (Snapshot, error) {
	now := time.Now()
	if end.Before(now) {
		return Snapshot{}, newPayloadErr(ErrTimeElapse, data)
	}
	if end.After(w.RoundEnd()) {
		metrics.IncWheelOverflow()
		return Snapshot{}, newPayloadErr(ErrOverflow, data)
	}
	meta := NewMeta(now, end, data)
	snap := Snapshot{ID: meta.ID, Start: meta.Start, End: meta.End}

	select {
	case w.cmdCh <- &wheelCmd[T]{kind: cmdAdd, meta: meta}:
	case <-w.done:
		return Snapshot{}, newPayloadErr(ErrChannel, data)
	}

	w.mu.Lock()
	w.snapshots[meta.ID] = snap
	depth := len(w.snapshots)
	w.mu.Unlock()
	metrics.IncWheelDispatched()
	metrics.SetWheelDepth(depth)
	return snap, nil
}

// Cancel removes a pending timer. It fails with a RecordError wrapping
// ErrNoRecord if the id is unknown (including if it already fired).
func (w *Wheel[T]) Cancel(id uint64) error {
	w.mu.Lock()
	snap, ok := w.snapshots[id]
	if ok {
		delete(w.snapshots, id)
	}
	depth := len(w.snapshots)
	w.mu.Unlock()
	if !ok {
		return errNoRecord(id)
	}
	metrics.IncWheelCancelled()
	metrics.SetWheelDepth(depth)
	slot := int(findSlot(w.start, w.slotDuration, snap.End))
	select {
	case w.cmdCh <- &wheelCmd[T]{kind: cmdCancel, id: id, slotHint: slot}:
		return nil
	case <-w.done:
		return newPayloadErrEmpty[struct{}](ErrChannel)
	}
}

// Accelerate brings a pending timer's deadline Δ closer. If doing so
// would put the new deadline in the past, the timer fires immediately
// instead (its delivered Meta.End will be `now`, not the adjusted end).
func (w *Wheel[T]) Accelerate(id uint64, delta time.Duration) error {
	now := time.Now()
	w.mu.Lock()
	snap, ok := w.snapshots[id]
	if !ok {
		w.mu.Unlock()
		return errNoRecord(id)
	}
	slot := int(findSlot(w.start, w.slotDuration, snap.End))
	if snap.End.Add(-delta).Before(now) {
		w.mu.Unlock()
		select {
		case w.cmdCh <- &wheelCmd[T]{kind: cmdTrigger, id: id, slotHint: slot}:
		case <-w.done:
			return newPayloadErrEmpty[struct{}](ErrChannel)
		}
		w.mu.Lock()
		if s, ok := w.snapshots[id]; ok {
			s.End = now
			w.snapshots[id] = s
		}
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	select {
	case w.cmdCh <- &wheelCmd[T]{kind: cmdAccelerate, id: id, slotHint: slot, delta: delta}:
	case <-w.done:
		return newPayloadErrEmpty[struct{}](ErrChannel)
	}
	w.mu.Lock()
	if s, ok := w.snapshots[id]; ok {
		s.End = s.End.Add(-delta)
		w.snapshots[id] = s
	}
	w.mu.Unlock()
	return nil
}

// Delay pushes a pending timer's deadline Δ further out. Fails with
// ErrOverflow if the new deadline would exceed the wheel's round.
func (w *Wheel[T]) Delay(id uint64, delta time.Duration) error {
	w.mu.Lock()
	snap, ok := w.snapshots[id]
	if !ok {
		w.mu.Unlock()
		return errNoRecord(id)
	}
	if snap.End.Add(delta).After(w.RoundEnd()) {
		w.mu.Unlock()
		metrics.IncWheelOverflow()
		return newPayloadErrEmpty[struct{}](ErrOverflow)
	}
	slot := int(findSlot(w.start, w.slotDuration, snap.End))
	w.mu.Unlock()

	select {
	case w.cmdCh <- &wheelCmd[T]{kind: cmdDelay, id: id, slotHint: slot, delta: delta}:
	case <-w.done:
		return newPayloadErrEmpty[struct{}](ErrChannel)
	}
	w.mu.Lock()
	if s, ok := w.snapshots[id]; ok {
		s.End = s.End.Add(delta)
		w.snapshots[id] = s
	}
	w.mu.Unlock()
	return nil
}

// Trigger forces a pending timer to fire immediately. The delivered
// Meta's End is set to the firing instant, not the originally scheduled
// deadline.
func (w *Wheel[T]) Trigger(id uint64) error {
	w.mu.Lock()
	snap, ok := w.snapshots[id]
	w.mu.Unlock()
	if !ok {
		return errNoRecord(id)
	}
	slot := int(findSlot(w.start, w.slotDuration, snap.End))
	select {
	case w.cmdCh <- &wheelCmd[T]{kind: cmdTrigger, id: id, slotHint: slot}:
		return nil
	case <-w.done:
		return newPayloadErrEmpty[struct{}](ErrChannel)
	}
}

// BatchAdd submits every Meta in metas atomically: either all are
// recorded and sent to the actor, or (on any validation failure) none
// are, and the offending payload is returned in the error. An empty
// slice returns immediately without contacting the actor.
func (w *Wheel[T]) BatchAdd(metas []Meta[T]) ([]Snapshot, error) {
	if len(metas) == 0 {
		return nil, nil
	}

	start := w.start
	roundEnd := w.RoundEnd()

	w.mu.Lock()
	entries := make([]batchEntry[T], 0, len(metas))
	seen := make(map[uint64]struct{}, len(metas))
	for _, meta := range metas {
		_, recorded := w.snapshots[meta.ID]
		_, repeated := seen[meta.ID]
		if recorded || repeated {
			w.mu.Unlock()
			return nil, errDupTimer(meta.ID)
		}
		seen[meta.ID] = struct{}{}
		if meta.Start.Before(start) {
			w.mu.Unlock()
			return nil, newPayloadErr(ErrTimeElapse, meta.Data)
		}
		if meta.End.After(roundEnd) {
			w.mu.Unlock()
			metrics.IncWheelOverflow()
			return nil, newPayloadErr(ErrOverflow, meta.Data)
		}
		slot := int(findSlot(start, w.slotDuration, meta.End))
		entries = append(entries, batchEntry[T]{meta: meta, slot: slot})
	}

	snaps := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		snap := Snapshot{ID: e.meta.ID, Start: e.meta.Start, End: e.meta.End}
		w.snapshots[e.meta.ID] = snap
		snaps = append(snaps, snap)
	}
	depth := len(w.snapshots)
	w.mu.Unlock()

	select {
	case w.cmdCh <- &wheelCmd[T]{kind: cmdBatchAdd, batch: entries}:
		for range entries {
			metrics.IncWheelDispatched()
		}
		metrics.SetWheelDepth(depth)
		return snaps, nil
	case <-w.done:
		w.mu.Lock()
		for _, e := range entries {
			delete(w.snapshots, e.meta.ID)
		}
		w.mu.Unlock()
		metas := make([]Meta[T], len(entries))
		for i, e := range entries {
			metas[i] = e.meta
		}
		return nil, newBatchErr(metas)
	}
}

// Tick blocks until the actor delivers the next non-empty batch of
// elapsed timers, then filters out any that were concurrently cancelled.
func (w *Wheel[T]) Tick() []Meta[T] {
	batch, ok := <-w.tickCh
	if !ok {
		panic("timer: tick channel closed unexpectedly")
	}
	survivors := batch[:0]
	w.mu.Lock()
	for _, m := range batch {
		if _, ok := w.snapshots[m.ID]; ok {
			delete(w.snapshots, m.ID)
			survivors = append(survivors, m)
		}
	}
	depth := len(w.snapshots)
	w.mu.Unlock()
	if len(survivors) > 0 {
		metrics.IncWheelFired(len(survivors))
	}
	metrics.SetWheelDepth(depth)
	return survivors
}

// findSlot implements spec.md §3's slot-selection formula: the deadline
// is biased to the previous slot when it lands exactly on a boundary, so
// the tick that fires slot k also fires timers whose end equals exactly
// t0+(k+1)*d.
func findSlot(wheelStart time.Time, slotDuration time.Duration, end time.Time) int64 {
	diff := end.Sub(wheelStart)
	q := diff / slotDuration
	r := diff % slotDuration
	if r == 0 {
		q--
	}
	return int64(q)
}
