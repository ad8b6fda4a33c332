package scene

import (
	"math"

	"runevale.gg/internal/sim/tuning"
)

// Integrator advances the locally controlled player from frame input:
// camera-relative horizontal movement, jump/gravity kinematics, and smoothed
// orientation.
type Integrator struct {
	Movement tuning.Movement
	Bounds   Bounds
}

// Step applies one frame of input over dt seconds and reports whether the
// position changed.
func (g Integrator) Step(p *LocalPlayer, in Input, dt float64) bool {
	if dt <= 0 {
		return false
	}
	before := p.Pos

	// Camera-relative basis on the horizontal plane. Yaw 0 faces +Z.
	fx, fz := math.Sin(in.CameraYaw), math.Cos(in.CameraYaw)
	rx, rz := math.Cos(in.CameraYaw), -math.Sin(in.CameraYaw)

	var mx, mz float64
	if in.Forward {
		mx += fx
		mz += fz
	}
	if in.Backward {
		mx -= fx
		mz -= fz
	}
	if in.Right {
		mx += rx
		mz += rz
	}
	if in.Left {
		mx -= rx
		mz -= rz
	}

	if mx != 0 || mz != 0 {
		// Normalize so diagonal input cannot outrun a single axis.
		n := math.Hypot(mx, mz)
		mx /= n
		mz /= n
		p.Pos.X += mx * g.Movement.Speed * dt
		p.Pos.Z += mz * g.Movement.Speed * dt
		g.turnToward(p, math.Atan2(mx, mz))
	}

	if in.Jump && p.Grounded {
		p.Grounded = false
		p.VerticalVel = g.Movement.JumpForce
	}
	if !p.Grounded {
		p.VerticalVel -= g.Movement.Gravity * dt
		p.Pos.Y += p.VerticalVel * dt
		if p.Pos.Y <= g.Movement.GroundLevel {
			p.Pos.Y = g.Movement.GroundLevel
			p.VerticalVel = 0
			p.Grounded = true
		}
	}

	p.Pos = g.Bounds.ClampXZ(p.Pos)
	return p.Pos != before
}

// turnToward eases the player's yaw toward the movement heading. The error
// is normalized into [-pi, pi] so the turn always takes the short way
// around; corrections below YawEpsilon are skipped to avoid perpetual
// sub-visible jitter.
func (g Integrator) turnToward(p *LocalPlayer, heading float64) {
	diff := normalizeAngle(heading - p.Yaw)
	step := diff * g.Movement.TurnSmoothing
	if math.Abs(step) < g.Movement.YawEpsilon {
		return
	}
	p.Yaw = normalizeAngle(p.Yaw + step)
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
