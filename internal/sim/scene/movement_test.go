package scene

import (
	"math"
	"math/rand"
	"testing"

	"runevale.gg/internal/sim/tuning"
)

func testIntegrator() Integrator {
	t := tuning.Default()
	return Integrator{Movement: t.Movement, Bounds: BoundsFrom(t.Bounds)}
}

func TestStep_PositionStaysInBounds(t *testing.T) {
	g := testIntegrator()
	p := &LocalPlayer{Grounded: true}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10_000; i++ {
		in := Input{
			Forward:   rng.Intn(2) == 0,
			Backward:  rng.Intn(2) == 0,
			Left:      rng.Intn(2) == 0,
			Right:     rng.Intn(2) == 0,
			Jump:      rng.Intn(4) == 0,
			CameraYaw: rng.Float64() * 2 * math.Pi,
		}
		g.Step(p, in, 1.0) // oversized dt to stress the clamp
		if !g.Bounds.ContainsXZ(p.Pos) {
			t.Fatalf("step %d: position %+v escaped bounds", i, p.Pos)
		}
	}
}

func TestStep_DiagonalDoesNotOutrunAxis(t *testing.T) {
	g := testIntegrator()
	dt := 1.0 / 60

	axis := &LocalPlayer{Grounded: true}
	g.Step(axis, Input{Forward: true}, dt)
	axisDist := axis.Pos.DistXZ(Vec3{})

	diag := &LocalPlayer{Grounded: true}
	g.Step(diag, Input{Forward: true, Right: true}, dt)
	diagDist := diag.Pos.DistXZ(Vec3{})

	if diagDist > axisDist+1e-12 {
		t.Fatalf("diagonal moved %v, single axis %v", diagDist, axisDist)
	}
}

func TestStep_JumpStateMachine(t *testing.T) {
	g := testIntegrator()
	p := &LocalPlayer{Grounded: true}
	dt := 1.0 / 60

	g.Step(p, Input{Jump: true}, dt)
	if p.Grounded {
		t.Fatalf("expected airborne after jump")
	}
	if p.VerticalVel <= 0 {
		t.Fatalf("expected upward velocity, got %v", p.VerticalVel)
	}

	// Holding jump while airborne must not re-launch.
	velBefore := p.VerticalVel
	g.Step(p, Input{Jump: true}, dt)
	if p.VerticalVel >= velBefore {
		t.Fatalf("gravity should reduce velocity: %v -> %v", velBefore, p.VerticalVel)
	}

	// Integrate until landing.
	for i := 0; i < 10_000 && !p.Grounded; i++ {
		g.Step(p, Input{}, dt)
	}
	if !p.Grounded {
		t.Fatalf("never landed")
	}
	if p.Pos.Y != g.Movement.GroundLevel {
		t.Fatalf("landed at y=%v, want ground level %v", p.Pos.Y, g.Movement.GroundLevel)
	}
	if p.VerticalVel != 0 {
		t.Fatalf("vertical velocity not zeroed on landing: %v", p.VerticalVel)
	}
}

func TestStep_YawEasesTowardHeading(t *testing.T) {
	g := testIntegrator()
	dt := 1.0 / 60

	p := &LocalPlayer{Grounded: true, Yaw: math.Pi / 2}
	// Forward with camera yaw 0 means heading 0.
	g.Step(p, Input{Forward: true}, dt)
	if p.Yaw >= math.Pi/2 {
		t.Fatalf("yaw did not ease toward heading: %v", p.Yaw)
	}

	// Converges without overshooting.
	for i := 0; i < 1_000; i++ {
		g.Step(p, Input{Forward: true}, dt)
	}
	if math.Abs(p.Yaw) > 0.01 {
		t.Fatalf("yaw did not converge: %v", p.Yaw)
	}
}

func TestStep_YawTakesShortWayAround(t *testing.T) {
	g := testIntegrator()
	p := &LocalPlayer{Grounded: true, Yaw: math.Pi - 0.1}
	// Heading for backward with camera yaw 0 is pi (normalized to -pi side
	// by atan2); the turn must cross the seam instead of unwinding a full
	// circle.
	g.Step(p, Input{Backward: true}, 1.0/60)
	if p.Yaw < math.Pi-0.1 {
		t.Fatalf("turn went the long way: %v", p.Yaw)
	}
}

func TestStep_NoInputNoMovement(t *testing.T) {
	g := testIntegrator()
	p := &LocalPlayer{Pos: Vec3{X: 3, Z: 4}, Grounded: true}
	if g.Step(p, Input{}, 1.0/60) {
		t.Fatalf("reported movement with no input")
	}
	if p.Pos != (Vec3{X: 3, Z: 4}) {
		t.Fatalf("position drifted: %+v", p.Pos)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, -math.Pi},
		{3 * math.Pi, math.Pi},
		{2*math.Pi + 0.5, 0.5},
		{-2*math.Pi - 0.5, -0.5},
	}
	for _, c := range cases {
		if got := normalizeAngle(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("normalizeAngle(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
