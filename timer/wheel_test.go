package timer

import (
	"testing"
	"time"
)

func TestWheelBasics(t *testing.T) {
	cases := []struct {
		name         string
		slots        uint32
		slotDuration time.Duration
	}{
		{"8ms slots", 125, 8 * time.Millisecond},
		{"10ms slots", 100, 10 * time.Millisecond},
		{"20ms slots", 50, 20 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := time.Now()
			w := NewWheel[int](tc.slots, tc.slotDuration, now)
			defer w.Close()

			if got := w.Slots(); got != tc.slots {
				t.Fatalf("Slots() = %d, want %d", got, tc.slots)
			}
			if got := w.SlotDuration(); got != tc.slotDuration {
				t.Fatalf("SlotDuration() = %v, want %v", got, tc.slotDuration)
			}
			wantRound := tc.slotDuration * time.Duration(tc.slots)
			if got := w.RoundDuration(); got != wantRound {
				t.Fatalf("RoundDuration() = %v, want %v", got, wantRound)
			}

			before := w.RoundEnd()
			time.Sleep(tc.slotDuration)
			after := w.RoundEnd()
			if before != after {
				t.Fatalf("RoundEnd() changed after sleep: before=%v after=%v; wheel start is frozen at construction", before, after)
			}
		})
	}
}

func TestWheelDispatchAndTick(t *testing.T) {
	now := time.Now()
	w := NewWheel[string](60, 10*time.Millisecond, now)
	defer w.Close()

	snap, err := w.Dispatch(30*time.Millisecond, "hello")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var got []Meta[string]
	deadline := time.After(2 * time.Second)
	for len(got) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for tick")
		default:
		}
		got = w.Tick()
	}
	if len(got) != 1 {
		t.Fatalf("Tick() = %d metas, want 1", len(got))
	}
	if got[0].ID != snap.ID {
		t.Fatalf("delivered id = %d, want %d", got[0].ID, snap.ID)
	}
	if got[0].Data != "hello" {
		t.Fatalf("delivered data = %q, want %q", got[0].Data, "hello")
	}
}

func TestWheelDispatchTimeElapsed(t *testing.T) {
	now := time.Now()
	w := NewWheel[int](10, 10*time.Millisecond, now)
	defer w.Close()

	_, err := w.DispatchUntil(now.Add(-time.Second), 1)
	if err == nil {
		t.Fatal("expected error for a deadline already in the past")
	}
	var perr *PayloadError[int]
	if !asPayloadError(err, &perr) {
		t.Fatalf("error is not a *PayloadError[int]: %v", err)
	}
	if payload, ok := perr.Payload(); !ok || payload != 1 {
		t.Fatalf("Payload() = (%v, %v), want (1, true)", payload, ok)
	}
	if !isErr(err, ErrTimeElapse) {
		t.Fatalf("error does not wrap ErrTimeElapse: %v", err)
	}
}

func TestWheelDispatchOverflow(t *testing.T) {
	now := time.Now()
	w := NewWheel[int](4, 10*time.Millisecond, now)
	defer w.Close()

	_, err := w.Dispatch(time.Hour, 1)
	if !isErr(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestWheelCancel(t *testing.T) {
	now := time.Now()
	w := NewWheel[int](60, 10*time.Millisecond, now)
	defer w.Close()

	snap, err := w.Dispatch(50*time.Millisecond, 42)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := w.Cancel(snap.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := w.Cancel(snap.ID); !isErr(err, ErrNoRecord) {
		t.Fatalf("second Cancel should fail with ErrNoRecord, got %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	select {
	case batch := <-w.tickCh:
		for _, m := range batch {
			if m.ID == snap.ID {
				t.Fatalf("cancelled timer %d was still delivered", snap.ID)
			}
		}
	default:
	}
}

func TestWheelDelayAndAccelerate(t *testing.T) {
	now := time.Now()
	w := NewWheel[int](60, 10*time.Millisecond, now)
	defer w.Close()

	snap, err := w.Dispatch(20*time.Millisecond, 7)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := w.Delay(snap.ID, 30*time.Millisecond); err != nil {
		t.Fatalf("Delay: %v", err)
	}
	if err := w.Accelerate(snap.ID, 10*time.Millisecond); err != nil {
		t.Fatalf("Accelerate: %v", err)
	}

	start := time.Now()
	var got []Meta[int]
	for len(got) == 0 && time.Since(start) < time.Second {
		got = w.Tick()
	}
	if len(got) != 1 || got[0].ID != snap.ID {
		t.Fatalf("expected delayed+accelerated timer to be delivered once, got %+v", got)
	}
}

func TestWheelTrigger(t *testing.T) {
	now := time.Now()
	w := NewWheel[int](600, 10*time.Millisecond, now)
	defer w.Close()

	snap, err := w.Dispatch(5*time.Second, 9)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := w.Trigger(snap.ID); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	got := w.Tick()
	if len(got) != 1 || got[0].ID != snap.ID {
		t.Fatalf("expected triggered timer to be delivered immediately, got %+v", got)
	}
}

func TestWheelBatchAddAllOrNothing(t *testing.T) {
	now := time.Now()
	w := NewWheel[int](10, 10*time.Millisecond, now)
	defer w.Close()

	ok1 := NewMeta(now, now.Add(20*time.Millisecond), 1)
	tooLate := NewMeta(now, now.Add(time.Hour), 2)

	_, err := w.BatchAdd([]Meta[int]{ok1, tooLate})
	if !isErr(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}

	if err := w.Cancel(ok1.ID); !isErr(err, ErrNoRecord) {
		t.Fatalf("batch member should not have been committed on rollback, Cancel returned %v", err)
	}
}

func TestWheelBatchAddDuplicate(t *testing.T) {
	now := time.Now()
	w := NewWheel[int](10, 10*time.Millisecond, now)
	defer w.Close()

	meta := NewMeta(now, now.Add(20*time.Millisecond), 1)
	if _, err := w.BatchAdd([]Meta[int]{meta, meta}); !isErr(err, ErrDupTimer) {
		t.Fatalf("expected ErrDupTimer, got %v", err)
	}
}

func TestFindSlotBoundary(t *testing.T) {
	start := time.Now()
	d := 10 * time.Millisecond
	cases := []struct {
		name string
		end  time.Time
		want int64
	}{
		{"one nanosecond into slot 0", start.Add(1), 0},
		{"exact boundary biases to previous slot", start.Add(d), 0},
		{"one nanosecond past boundary", start.Add(d + 1), 1},
		{"exact second boundary", start.Add(2 * d), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := findSlot(start, d, tc.end); got != tc.want {
				t.Fatalf("findSlot() = %d, want %d", got, tc.want)
			}
		})
	}
}

func isErr(err error, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func asPayloadError(err error, out **PayloadError[int]) bool {
	pe, ok := err.(*PayloadError[int])
	if ok {
		*out = pe
	}
	return ok
}
