package scene

import (
	"math"
	"time"

	"runevale.gg/internal/sim/tuning"
)

type Vec3 struct {
	X, Y, Z float64
}

// Dist is the full euclidean distance between two points.
func (v Vec3) Dist(o Vec3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DistXZ ignores the vertical axis; horizontal speed checks use it.
func (v Vec3) DistXZ(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// Bounds is the axis-aligned playable rectangle. Height is unconstrained.
type Bounds struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

func BoundsFrom(t tuning.Bounds) Bounds {
	return Bounds{MinX: t.MinX, MaxX: t.MaxX, MinZ: t.MinZ, MaxZ: t.MaxZ}
}

func (b Bounds) ClampXZ(v Vec3) Vec3 {
	v.X = math.Min(math.Max(v.X, b.MinX), b.MaxX)
	v.Z = math.Min(math.Max(v.Z, b.MinZ), b.MaxZ)
	return v
}

func (b Bounds) ContainsXZ(v Vec3) bool {
	return v.X >= b.MinX && v.X <= b.MaxX && v.Z >= b.MinZ && v.Z <= b.MaxZ
}

// LocalPlayer is the locally controlled entity. It is owned by the scene
// loop and mutated only by the Integrator and the Guard.
type LocalPlayer struct {
	Pos         Vec3
	Yaw         float64
	VerticalVel float64
	Grounded    bool
}

// RemoteAvatar is one remotely controlled entity. The Handle is an opaque
// visual representation owned by the rendering collaborator.
type RemoteAvatar struct {
	ID     string
	Name   string
	Pos    Vec3
	Handle AvatarHandle
}

// PositionSample is one horizontal position observation, held in the guard's
// short history ring.
type PositionSample struct {
	X, Z float64
	At   time.Time
}
