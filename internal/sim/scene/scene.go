// Package scene implements the client-side movement synchronization core:
// local motion prediction, anomaly smoothing, throttled outbound reports,
// and reconciliation of remotely controlled avatars.
//
// A Scene is single-threaded by construction. The frame loop reads input,
// integrates the local player, validates the result, re-evaluates the zone,
// and conditionally emits a report, in that fixed order. Inbound network
// events go through a bounded inbox drained at the top of every frame, so a
// "moved" racing a "joined" can never produce two live representations.
package scene

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"runevale.gg/internal/sim/tuning"
	"runevale.gg/internal/sim/zone"
)

const inboxCapacity = 256

type Config struct {
	// LocalID and LocalName identify the locally controlled player.
	LocalID   string
	LocalName string
	Spawn     Vec3

	Tuning tuning.Tuning

	Input     InputSource
	Renderer  Renderer
	Directory Directory
	Reports   ReportSink
	Diag      DiagSink

	Logger *log.Logger

	// OnZoneChange fires when the classified region differs from the last
	// notified one. Called on the loop goroutine.
	OnZoneChange func(zone.Zone)
}

type Scene struct {
	cfg    Config
	bounds Bounds

	player      LocalPlayer
	localHandle AvatarHandle

	integ    Integrator
	guard    Guard
	throttle Throttle
	recon    *Reconciler

	lastZone zone.Zone

	inbox    chan Event
	stop     chan struct{}
	stopOnce sync.Once

	stats Stats
}

func New(cfg Config) (*Scene, error) {
	if cfg.LocalID == "" {
		return nil, fmt.Errorf("scene: empty local id")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if cfg.Renderer == nil {
		cfg.Renderer = NewMemoryRenderer()
	}
	if cfg.Diag == nil {
		cfg.Diag = nopDiag{}
	}
	if cfg.Reports == nil {
		cfg.Reports = nopReports{}
	}

	bounds := BoundsFrom(cfg.Tuning.Bounds)
	s := &Scene{
		cfg:    cfg,
		bounds: bounds,
		player: LocalPlayer{
			Pos:      bounds.ClampXZ(cfg.Spawn),
			Grounded: true,
		},
		integ: Integrator{Movement: cfg.Tuning.Movement, Bounds: bounds},
		guard: Guard{Anomaly: cfg.Tuning.Anomaly, Bounds: bounds, Diag: cfg.Diag},
		throttle: Throttle{
			Interval: time.Duration(cfg.Tuning.SendIntervalMs) * time.Millisecond,
			MinDelta: cfg.Tuning.MinSendDelta,
			Bounds:   bounds,
		},
		inbox: make(chan Event, inboxCapacity),
		stop:  make(chan struct{}),
	}
	s.recon = NewReconciler(cfg.LocalID, cfg.Tuning, cfg.Renderer, cfg.Directory, cfg.Diag, cfg.Logger, &s.stats)

	s.localHandle = cfg.Renderer.CreateAvatar(cfg.LocalID, cfg.LocalName, s.player.Pos)
	s.recon.SetLocalHandle(s.localHandle)

	return s, nil
}

// Events is the inbound network inbox. The transport reader is the only
// intended producer; enqueueing blocks when the inbox is full rather than
// dropping correctness-bearing events.
func (s *Scene) Events() chan<- Event { return s.inbox }

// Player returns a copy of the local player state.
func (s *Scene) Player() LocalPlayer { return s.player }

// Avatars returns a sorted copy of the remote registry.
func (s *Scene) Avatars() []RemoteAvatar { return s.recon.Avatars() }

// Reconciler exposes the registry owner for black-box harnesses.
func (s *Scene) Reconciler() *Reconciler { return s.recon }

// Zone is the last notified region label.
func (s *Scene) Zone() zone.Zone { return s.lastZone }

// StatsSnapshot copies the counters.
func (s *Scene) StatsSnapshot() Stats { return s.stats }

// Run drives the scene until ctx is cancelled or Close is called. State is
// torn down before it returns.
func (s *Scene) Run(ctx context.Context) error {
	frame := time.NewTicker(time.Second / time.Duration(s.cfg.Tuning.FrameRateHz))
	defer frame.Stop()
	cleanup := time.NewTicker(time.Duration(s.cfg.Tuning.CleanupEveryS) * time.Second)
	defer cleanup.Stop()
	defer s.Teardown()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case now := <-frame.C:
			dt := now.Sub(last).Seconds()
			last = now
			var in Input
			if s.cfg.Input != nil {
				in = s.cfg.Input.Sample()
			}
			s.StepOnce(now, dt, in)
		case now := <-cleanup.C:
			// Runs on the loop goroutine, so a pass can never overlap
			// itself or a frame.
			s.recon.DedupPass(now)
		}
	}
}

// Close signals a running loop to stop. Safe to call more than once.
func (s *Scene) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// StepOnce advances the scene by one frame: drain the inbox, read input,
// integrate, validate, classify, report. Exported so tests and embedders
// can drive the loop deterministically.
func (s *Scene) StepOnce(now time.Time, dt float64, in Input) {
	s.drainInbox(now)

	moved := s.integ.Step(&s.player, in, dt)
	if moved {
		s.throttle.MarkDirty()
	}
	if s.guard.Observe(&s.player, now) {
		s.stats.Anomalies++
		s.throttle.MarkDirty()
		moved = true
	}
	if moved {
		s.cfg.Renderer.MoveAvatar(s.localHandle, s.player.Pos)
	}

	if z := zone.Classify(s.player.Pos.X, s.player.Pos.Z); z != s.lastZone {
		s.lastZone = z
		s.stats.ZoneChanges++
		if s.cfg.OnZoneChange != nil {
			s.cfg.OnZoneChange(z)
		}
	}

	sent, err := s.throttle.Flush(now, s.player.Pos, s.cfg.Reports)
	if err != nil && s.cfg.Logger != nil {
		// The dirty flag survives a failed send; the freshest position
		// flushes once the transport recovers.
		s.cfg.Logger.Printf("move report failed: %v", err)
	}
	if sent {
		s.stats.ReportsSent++
	}

	s.stats.Frames++
}

// DedupNow runs the periodic dedup pass immediately. For callers driving
// the scene via StepOnce.
func (s *Scene) DedupNow(now time.Time) { s.recon.DedupPass(now) }

// Teardown clears the registry, the local representation, and the sample
// history. Run calls it on exit; manual drivers call it directly.
func (s *Scene) Teardown() {
	s.recon.Clear()
	if s.localHandle != nil {
		s.cfg.Renderer.ReleaseAvatar(s.localHandle)
		s.localHandle = nil
		s.recon.SetLocalHandle(nil)
	}
	s.guard.Reset()
}

func (s *Scene) drainInbox(now time.Time) {
	for {
		select {
		case ev := <-s.inbox:
			s.apply(ev, now)
		default:
			return
		}
	}
}

func (s *Scene) apply(ev Event, now time.Time) {
	switch e := ev.(type) {
	case RosterEvent:
		s.recon.ApplyRoster(e.Players)
	case JoinedEvent:
		s.recon.HandleJoined(e.Player)
	case LeftEvent:
		s.recon.HandleLeft(e.ID)
	case MovedEvent:
		s.recon.HandleMoved(e.ID, e.X, e.Y, e.Z, now)
	case SyncCheckEvent:
		missing := s.recon.SyncCheck(e.IDs)
		if e.Respond != nil {
			e.Respond(missing)
		}
	default:
		if s.cfg.Logger != nil {
			s.cfg.Logger.Printf("dropping unknown event %T", ev)
		}
	}
}
