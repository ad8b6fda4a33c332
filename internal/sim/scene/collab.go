package scene

import (
	"time"

	"runevale.gg/internal/protocol"
)

// AvatarHandle is an opaque visual representation issued by the rendering
// collaborator. Handles must be comparable; the dedup pass relies on == to
// tell representations apart.
type AvatarHandle any

// AvatarRef pairs a live representation with the entity id it claims to
// depict.
type AvatarRef struct {
	ID     string
	Handle AvatarHandle
}

// Renderer is the rendering collaborator. Mesh and resource management stay
// on its side of the boundary; the scene only creates, moves, and releases
// handles.
type Renderer interface {
	CreateAvatar(id, name string, pos Vec3) AvatarHandle
	MoveAvatar(h AvatarHandle, pos Vec3)
	ReleaseAvatar(h AvatarHandle)
	// LiveAvatars enumerates every representation currently held, including
	// any the scene no longer tracks. The dedup pass sweeps against it.
	LiveAvatars() []AvatarRef
}

// Directory resolves authoritative player data by id. A nil player with a
// nil error means the id is unknown server-side.
type Directory interface {
	Lookup(id string) (*protocol.Player, error)
}

// ReportSink carries throttled outbound position reports. A returned error
// leaves the report pending; the throttle retries on the next open gate.
type ReportSink interface {
	SendMove(pos Vec3) error
}

// DiagSink records non-fatal sync diagnostics (rejected updates, anomaly
// corrections, dedup sweeps). Sinks must not block the scene loop.
type DiagSink interface {
	Record(e DiagEntry)
}

type DiagEntry struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	PlayerID string    `json:"player_id,omitempty"`
	Code     string    `json:"code,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	Z        float64   `json:"z,omitempty"`
}

// Diagnostic kinds.
const (
	DiagAnomaly       = "anomaly_correction"
	DiagRejectedMove  = "rejected_move"
	DiagPlaceholder   = "placeholder_created"
	DiagDedupReleased = "dedup_released"
	DiagStaleEntry    = "stale_entry_removed"
)

type nopDiag struct{}

func (nopDiag) Record(DiagEntry) {}

type nopReports struct{}

func (nopReports) SendMove(Vec3) error { return nil }
