package scene

import (
	"errors"
	"testing"
	"time"
)

type recordingSink struct {
	sent []Vec3
	err  error
}

func (s *recordingSink) SendMove(pos Vec3) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, pos)
	return nil
}

func testThrottle() *Throttle {
	return &Throttle{
		Interval: 100 * time.Millisecond,
		MinDelta: 0.01,
		Bounds:   Bounds{MinX: -50, MaxX: 50, MinZ: -50, MaxZ: 50},
	}
}

func TestFlush_AtMostOnePerInterval(t *testing.T) {
	th := testThrottle()
	sink := &recordingSink{}
	base := time.Now()

	// Many mutations inside one interval window.
	for i := 0; i < 50; i++ {
		th.MarkDirty()
		pos := Vec3{X: float64(i) * 0.1}
		now := base.Add(time.Duration(i) * time.Millisecond)
		if _, err := th.Flush(now, pos, sink); err != nil {
			t.Fatalf("flush: %v", err)
		}
	}
	if len(sink.sent) != 1 {
		t.Fatalf("sent %d reports within one interval, want 1", len(sink.sent))
	}
	if !th.Dirty() {
		t.Fatalf("pending change lost while the gate was closed")
	}

	// The gate reopens after the interval and flushes the freshest state.
	th.MarkDirty()
	if sent, _ := th.Flush(base.Add(150*time.Millisecond), Vec3{X: 4.9}, sink); !sent {
		t.Fatalf("expected flush after interval elapsed")
	}
	if got := sink.sent[len(sink.sent)-1]; got.X != 4.9 {
		t.Fatalf("stale position emitted: %+v", got)
	}
}

func TestFlush_DeltaGate(t *testing.T) {
	th := testThrottle()
	sink := &recordingSink{}
	base := time.Now()

	th.MarkDirty()
	th.Flush(base, Vec3{X: 1}, sink)

	// Sub-epsilon drift: gate stays closed, flag persists.
	th.MarkDirty()
	if sent, _ := th.Flush(base.Add(200*time.Millisecond), Vec3{X: 1.005}, sink); sent {
		t.Fatalf("sub-delta displacement emitted")
	}
	if !th.Dirty() {
		t.Fatalf("dirty flag cleared without a send")
	}

	if sent, _ := th.Flush(base.Add(400*time.Millisecond), Vec3{X: 1.5}, sink); !sent {
		t.Fatalf("expected emit once the delta gate opened")
	}
}

func TestFlush_CleanSkipsSend(t *testing.T) {
	th := testThrottle()
	sink := &recordingSink{}
	if sent, _ := th.Flush(time.Now(), Vec3{X: 1}, sink); sent {
		t.Fatalf("flushed without a dirty flag")
	}
	if len(sink.sent) != 0 {
		t.Fatalf("unexpected send")
	}
}

func TestFlush_ErrorKeepsDirty(t *testing.T) {
	th := testThrottle()
	sink := &recordingSink{err: errors.New("connection down")}

	th.MarkDirty()
	if _, err := th.Flush(time.Now(), Vec3{X: 2}, sink); err == nil {
		t.Fatalf("expected sink error surfaced")
	}
	if !th.Dirty() {
		t.Fatalf("dirty flag cleared on failed send")
	}

	// Recovery flushes the latest state.
	sink.err = nil
	if sent, _ := th.Flush(time.Now().Add(time.Second), Vec3{X: 3}, sink); !sent {
		t.Fatalf("expected flush after recovery")
	}
	if sink.sent[0].X != 3 {
		t.Fatalf("flushed stale position %+v", sink.sent[0])
	}
}

func TestFlush_ClampsBeforeTransmit(t *testing.T) {
	th := testThrottle()
	sink := &recordingSink{}

	th.MarkDirty()
	th.Flush(time.Now(), Vec3{X: 500, Z: -500}, sink)
	if len(sink.sent) != 1 {
		t.Fatalf("expected one send")
	}
	if got := sink.sent[0]; got.X != 50 || got.Z != -50 {
		t.Fatalf("position not clamped before transmit: %+v", got)
	}
}

func TestFlush_ClockNeverRunsBackwards(t *testing.T) {
	th := testThrottle()
	sink := &recordingSink{}
	base := time.Now()

	th.MarkDirty()
	th.Flush(base, Vec3{X: 1}, sink)

	// An earlier timestamp must not reopen the gate.
	th.MarkDirty()
	if sent, _ := th.Flush(base.Add(-time.Hour), Vec3{X: 10}, sink); sent {
		t.Fatalf("backwards clock reopened the gate")
	}
}
