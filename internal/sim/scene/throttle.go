package scene

import (
	"math"
	"time"
)

// Throttle rate- and delta-gates outbound position reports. Only the
// freshest position matters: skipped flushes are superseded, never queued.
type Throttle struct {
	Interval time.Duration
	MinDelta float64
	Bounds   Bounds

	dirty      bool
	haveSent   bool
	lastSent   Vec3
	lastSendAt time.Time
}

// MarkDirty flags that the local position changed since the last report.
func (t *Throttle) MarkDirty() { t.dirty = true }

// Dirty reports whether a position change is still waiting to go out.
func (t *Throttle) Dirty() bool { return t.dirty }

// LastSent returns the last successfully emitted position, if any.
func (t *Throttle) LastSent() (Vec3, bool) { return t.lastSent, t.haveSent }

// Flush emits the given position through sink when the time gate and the
// minimum-delta gate are both open. On success the pending state advances
// and the dirty flag clears; on a closed gate or a sink error the flag
// persists so the freshest position flushes later.
func (t *Throttle) Flush(now time.Time, pos Vec3, sink ReportSink) (bool, error) {
	if !t.dirty || sink == nil {
		return false, nil
	}
	if now.Before(t.lastSendAt) {
		// The send clock never runs backwards.
		now = t.lastSendAt
	}
	if t.haveSent && now.Sub(t.lastSendAt) < t.Interval {
		return false, nil
	}

	pos = t.Bounds.ClampXZ(pos)
	if t.haveSent &&
		math.Abs(pos.X-t.lastSent.X) <= t.MinDelta &&
		math.Abs(pos.Z-t.lastSent.Z) <= t.MinDelta {
		return false, nil
	}

	if err := sink.SendMove(pos); err != nil {
		return false, err
	}
	t.lastSent = pos
	t.lastSendAt = now
	t.haveSent = true
	t.dirty = false
	return true, nil
}
