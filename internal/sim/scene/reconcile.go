package scene

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"runevale.gg/internal/protocol"
	"runevale.gg/internal/sim/tuning"
)

// Reconciler owns the registry of remotely controlled avatars and converges
// it against inbound network events. The registry is the sole source of
// truth for which remote entities exist; entity existence is never inferred
// from the render side.
//
// All methods must be called on the scene loop goroutine.
type Reconciler struct {
	localID     string
	localHandle AvatarHandle
	bounds      Bounds
	largeJump   float64
	maxCoord    float64

	renderer  Renderer
	directory Directory
	diag      DiagSink
	log       *log.Logger
	stats     *Stats

	registry map[string]*RemoteAvatar
}

func NewReconciler(localID string, t tuning.Tuning, r Renderer, d Directory, diag DiagSink, logger *log.Logger, stats *Stats) *Reconciler {
	if diag == nil {
		diag = nopDiag{}
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Reconciler{
		localID:   localID,
		bounds:    BoundsFrom(t.Bounds),
		largeJump: t.LargeJumpThreshold,
		maxCoord:  t.MaxCoordinate,
		renderer:  r,
		directory: d,
		diag:      diag,
		log:       logger,
		stats:     stats,
		registry:  map[string]*RemoteAvatar{},
	}
}

// SetLocalHandle tells the reconciler which representation depicts the
// locally controlled player, so the dedup pass can keep it canonical.
func (r *Reconciler) SetLocalHandle(h AvatarHandle) { r.localHandle = h }

func (r *Reconciler) Len() int { return len(r.registry) }

func (r *Reconciler) Get(id string) (RemoteAvatar, bool) {
	a, ok := r.registry[id]
	if !ok {
		return RemoteAvatar{}, false
	}
	return *a, true
}

// IDs returns the registry keys in sorted order.
func (r *Reconciler) IDs() []string {
	out := make([]string, 0, len(r.registry))
	for id := range r.registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Avatars returns a sorted copy of the registry for render-side readers.
func (r *Reconciler) Avatars() []RemoteAvatar {
	out := make([]RemoteAvatar, 0, len(r.registry))
	for _, id := range r.IDs() {
		out = append(out, *r.registry[id])
	}
	return out
}

// ApplyRoster converges the registry to exactly the snapshot: players in
// the snapshot but absent locally are created, local entries absent from
// the snapshot are removed. The local player's own id is never created.
func (r *Reconciler) ApplyRoster(players []protocol.Player) {
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p.ID == "" || p.ID == r.localID {
			continue
		}
		seen[p.ID] = true
		if _, ok := r.registry[p.ID]; ok {
			continue
		}
		r.create(p)
	}
	for id := range r.registry {
		if !seen[id] {
			r.remove(id)
		}
	}
}

// HandleJoined creates the avatar. A join for an id that is already present
// is a race with a stale representation: the existing resources are
// discarded first, then the avatar is recreated, so a single id never holds
// two live representations.
func (r *Reconciler) HandleJoined(p protocol.Player) {
	if p.ID == "" || p.ID == r.localID {
		return
	}
	if _, ok := r.registry[p.ID]; ok {
		r.remove(p.ID)
	}
	r.create(p)
}

// HandleLeft removes the avatar and releases its representation. A
// departure event naming the local player is ignored.
func (r *Reconciler) HandleLeft(id string) {
	if id == "" || id == r.localID {
		return
	}
	if _, ok := r.registry[id]; !ok {
		return
	}
	r.remove(id)
}

// HandleMoved applies a remote position update. Malformed coordinates are
// rejected and recorded; an unknown id triggers a directory lookup, and a
// placeholder avatar is synthesized when that fails too, so the update is
// never dropped silently. Large jumps are smoothed halfway instead of
// teleporting.
func (r *Reconciler) HandleMoved(id string, x, y, z float64, now time.Time) {
	if id == "" || id == r.localID {
		return
	}
	if !plausible(x, r.maxCoord) || !plausible(y, r.maxCoord) || !plausible(z, r.maxCoord) {
		r.stats.RejectedMoves++
		r.diag.Record(DiagEntry{
			At:       now,
			Kind:     DiagRejectedMove,
			PlayerID: id,
			Code:     protocol.ErrBadPosition,
			Detail:   fmt.Sprintf("non-finite or out-of-range position (%v, %v, %v)", x, y, z),
		})
		return
	}
	target := r.bounds.ClampXZ(Vec3{X: x, Y: y, Z: z})

	a, ok := r.registry[id]
	if !ok {
		r.adoptUnknown(id, target, now)
		return
	}

	if a.Pos.Dist(target) > r.largeJump {
		// Trail halfway toward the target instead of teleporting; the
		// remaining distance closes on subsequent updates.
		target = Vec3{
			X: a.Pos.X + (target.X-a.Pos.X)/2,
			Y: a.Pos.Y + (target.Y-a.Pos.Y)/2,
			Z: a.Pos.Z + (target.Z-a.Pos.Z)/2,
		}
		target = r.bounds.ClampXZ(target)
	}
	a.Pos = target
	r.renderer.MoveAvatar(a.Handle, a.Pos)
}

// adoptUnknown resolves a move event for an id the registry does not know:
// first ask the directory for authoritative data, then fall back to a
// synthesized placeholder at the reported position.
func (r *Reconciler) adoptUnknown(id string, pos Vec3, now time.Time) {
	if r.directory != nil {
		r.stats.Lookups++
		p, err := r.directory.Lookup(id)
		if err != nil && r.log != nil {
			r.log.Printf("lookup %s failed: %v", id, err)
		}
		if err == nil && p != nil {
			player := *p
			player.X, player.Y, player.Z = pos.X, pos.Y, pos.Z
			r.create(player)
			return
		}
	}

	r.stats.Placeholders++
	name := "Adventurer-" + uuid.NewString()[:8]
	r.create(protocol.Player{ID: id, Name: name, X: pos.X, Y: pos.Y, Z: pos.Z})
	r.diag.Record(DiagEntry{
		At:       now,
		Kind:     DiagPlaceholder,
		PlayerID: id,
		Code:     protocol.ErrUnknownPlayer,
		Detail:   "synthesized placeholder for unresolved mover",
		X:        pos.X,
		Y:        pos.Y,
		Z:        pos.Z,
	})
}

// SyncCheck returns the subset of ids not present in the registry, the
// pull-based repair path for events the transport dropped. The local
// player's own id is never reported missing.
func (r *Reconciler) SyncCheck(ids []string) []string {
	missing := make([]string, 0)
	for _, id := range ids {
		if id == "" || id == r.localID {
			continue
		}
		if _, ok := r.registry[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// DedupPass cross-references the registry against the renderer's live
// enumeration. For every id holding more than one representation, exactly
// one canonical handle survives (the registry-tracked one, or the local
// player's own); registry entries with no live representation are dropped.
func (r *Reconciler) DedupPass(now time.Time) {
	refs := r.renderer.LiveAvatars()
	byID := map[string][]AvatarHandle{}
	for _, ref := range refs {
		if ref.ID == "" {
			continue
		}
		byID[ref.ID] = append(byID[ref.ID], ref.Handle)
	}

	for id, handles := range byID {
		var keep AvatarHandle
		switch {
		case id == r.localID:
			keep = r.localHandle
		default:
			a, ok := r.registry[id]
			if !ok {
				// Untracked strays: the registry is the source of truth,
				// so every representation goes.
				for _, h := range handles {
					r.release(id, h, now)
				}
				continue
			}
			keep = a.Handle
			if !contains(handles, keep) {
				// The tracked handle is gone; adopt one survivor.
				keep = handles[0]
				a.Handle = keep
			}
		}
		kept := false
		for _, h := range handles {
			if h == keep && !kept {
				kept = true
				continue
			}
			r.release(id, h, now)
		}
	}

	for id := range r.registry {
		if len(byID[id]) == 0 {
			delete(r.registry, id)
			r.diag.Record(DiagEntry{
				At:       now,
				Kind:     DiagStaleEntry,
				PlayerID: id,
				Detail:   "registry entry without live representation",
			})
		}
	}
}

// Clear releases every tracked representation and empties the registry.
func (r *Reconciler) Clear() {
	for id := range r.registry {
		r.remove(id)
	}
}

func (r *Reconciler) create(p protocol.Player) {
	pos := r.bounds.ClampXZ(Vec3{X: p.X, Y: p.Y, Z: p.Z})
	h := r.renderer.CreateAvatar(p.ID, p.Name, pos)
	r.registry[p.ID] = &RemoteAvatar{ID: p.ID, Name: p.Name, Pos: pos, Handle: h}
}

func (r *Reconciler) remove(id string) {
	a, ok := r.registry[id]
	if !ok {
		return
	}
	delete(r.registry, id)
	if a.Handle != nil {
		r.renderer.ReleaseAvatar(a.Handle)
	}
}

func (r *Reconciler) release(id string, h AvatarHandle, now time.Time) {
	if h == nil {
		return
	}
	r.renderer.ReleaseAvatar(h)
	r.stats.DedupReleased++
	r.diag.Record(DiagEntry{
		At:       now,
		Kind:     DiagDedupReleased,
		PlayerID: id,
		Detail:   "duplicate representation released",
	})
}

func contains(handles []AvatarHandle, h AvatarHandle) bool {
	for _, c := range handles {
		if c == h {
			return true
		}
	}
	return false
}

func plausible(v, maxCoord float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= maxCoord
}
