package scene

import (
	"math"
	"time"

	"runevale.gg/internal/protocol"
	"runevale.gg/internal/sim/tuning"
)

// Guard bounds the locally observed horizontal speed using a short history
// of position samples. It is an advisory client-side heuristic, not a
// security boundary; the server remains free to run its own validation.
type Guard struct {
	Anomaly tuning.Anomaly
	Bounds  Bounds
	Diag    DiagSink

	samples []PositionSample
}

// Observe appends a sample for the player's current position. When the two
// newest samples imply a speed above the threshold, the latest position is
// pulled back toward the previous sample, re-clamped to bounds, and written
// back to the player. It reports whether a correction was applied.
//
// Observing an already-corrected pair again performs no further change: the
// kept displacement is min(distance, MaxAllowedDistance), so a second pass
// reproduces the same point.
func (g *Guard) Observe(p *LocalPlayer, now time.Time) bool {
	g.push(PositionSample{X: p.Pos.X, Z: p.Pos.Z, At: now})

	n := len(g.samples)
	if n < 2 {
		return false
	}
	prev, cur := g.samples[n-2], g.samples[n-1]
	elapsed := cur.At.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		return false
	}

	dx, dz := cur.X-prev.X, cur.Z-prev.Z
	dist := math.Hypot(dx, dz)
	if dist/elapsed <= g.Anomaly.SpeedThreshold {
		return false
	}

	keep := math.Min(dist, g.Anomaly.MaxAllowedDistance)
	corrected := g.Bounds.ClampXZ(Vec3{
		X: prev.X + dx/dist*keep,
		Y: p.Pos.Y,
		Z: prev.Z + dz/dist*keep,
	})
	if corrected.X == cur.X && corrected.Z == cur.Z {
		return false
	}

	g.samples[n-1] = PositionSample{X: corrected.X, Z: corrected.Z, At: cur.At}
	p.Pos.X, p.Pos.Z = corrected.X, corrected.Z

	if g.Diag != nil {
		g.Diag.Record(DiagEntry{
			At:     now,
			Kind:   DiagAnomaly,
			Code:   protocol.ErrBadPosition,
			Detail: "implausible displacement capped",
			X:      corrected.X,
			Y:      p.Pos.Y,
			Z:      corrected.Z,
		})
	}
	return true
}

// HistoryLen is the number of samples currently held.
func (g *Guard) HistoryLen() int { return len(g.samples) }

// Reset drops the sample history.
func (g *Guard) Reset() { g.samples = nil }

func (g *Guard) push(s PositionSample) {
	limit := g.Anomaly.HistoryLength
	if limit < 2 {
		limit = 2
	}
	if len(g.samples) < limit {
		g.samples = append(g.samples, s)
		return
	}
	// Evict the oldest in place; capacity stays fixed.
	copy(g.samples, g.samples[1:])
	g.samples[len(g.samples)-1] = s
}
