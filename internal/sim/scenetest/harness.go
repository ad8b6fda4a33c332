// Package scenetest is a black-box harness for driving a scene through its
// exported API: deterministic frames via StepOnce, inbound events via the
// inbox, and capturing collaborators on every boundary. It intentionally
// avoids touching scene internals so tests can live outside the package.
package scenetest

import (
	"testing"
	"time"

	"runevale.gg/internal/protocol"
	"runevale.gg/internal/sim/scene"
	"runevale.gg/internal/sim/tuning"
	"runevale.gg/internal/sim/zone"
)

const LocalID = "local"

type Harness struct {
	T *testing.T
	S *scene.Scene

	Renderer *scene.MemoryRenderer
	Sink     *CapturingSink
	Diag     *CapturingDiag
	Dir      *StubDirectory

	Zones []zone.Zone

	now   time.Time
	frame time.Duration
	input scene.Input
}

func NewHarness(t *testing.T, mutate func(*scene.Config)) *Harness {
	t.Helper()

	h := &Harness{
		T:        t,
		Renderer: scene.NewMemoryRenderer(),
		Sink:     &CapturingSink{},
		Diag:     &CapturingDiag{},
		Dir:      &StubDirectory{Players: map[string]protocol.Player{}},
		now:      time.Unix(1_700_000_000, 0),
	}

	cfg := scene.Config{
		LocalID:   LocalID,
		LocalName: "adventurer",
		Tuning:    tuning.Default(),
		Renderer:  h.Renderer,
		Reports:   h.Sink,
		Diag:      h.Diag,
		Directory: h.Dir,
		OnZoneChange: func(z zone.Zone) {
			h.Zones = append(h.Zones, z)
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := scene.New(cfg)
	if err != nil {
		t.Fatalf("scene.New: %v", err)
	}
	h.S = s
	h.frame = time.Second / time.Duration(cfg.Tuning.FrameRateHz)
	t.Cleanup(s.Teardown)
	return h
}

// SetInput fixes the operator intent for subsequent frames.
func (h *Harness) SetInput(in scene.Input) { h.input = in }

// Deliver queues an inbound event; it applies at the top of the next frame.
func (h *Harness) Deliver(ev scene.Event) {
	h.T.Helper()
	select {
	case h.S.Events() <- ev:
	default:
		h.T.Fatalf("scene inbox full")
	}
}

// Step advances exactly one frame.
func (h *Harness) Step() {
	h.now = h.now.Add(h.frame)
	h.S.StepOnce(h.now, h.frame.Seconds(), h.input)
}

// StepFor advances whole frames until d simulated time has passed.
func (h *Harness) StepFor(d time.Duration) {
	for end := h.now.Add(d); h.now.Before(end); {
		h.Step()
	}
}

// Dedup triggers the periodic cleanup sweep at the current instant.
func (h *Harness) Dedup() { h.S.DedupNow(h.now) }

// Now is the harness clock.
func (h *Harness) Now() time.Time { return h.now }

// CapturingSink records every outbound report with the instant it left.
type CapturingSink struct {
	Sent []scene.Vec3
	Err  error
}

func (s *CapturingSink) SendMove(pos scene.Vec3) error {
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, pos)
	return nil
}

// CapturingDiag records diagnostics by kind.
type CapturingDiag struct {
	Entries []scene.DiagEntry
}

func (d *CapturingDiag) Record(e scene.DiagEntry) { d.Entries = append(d.Entries, e) }

func (d *CapturingDiag) Count(kind string) int {
	n := 0
	for _, e := range d.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// StubDirectory resolves lookups from a fixed map.
type StubDirectory struct {
	Players map[string]protocol.Player
	Err     error
	Calls   int
}

func (d *StubDirectory) Lookup(id string) (*protocol.Player, error) {
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	p, ok := d.Players[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
