package scene

import "sort"

// MemoryRenderer is an in-memory rendering collaborator: each avatar is a
// plain record the embedding shell can read and mirror into its actual
// scene graph. It also backs headless runs and tests.
//
// Not safe for concurrent use; like the rest of the scene it lives on the
// loop goroutine.
type MemoryRenderer struct {
	avatars map[*MemoryAvatar]struct{}
}

// MemoryAvatar is the representation handed out as AvatarHandle.
type MemoryAvatar struct {
	ID   string
	Name string
	Pos  Vec3
}

func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{avatars: map[*MemoryAvatar]struct{}{}}
}

func (r *MemoryRenderer) CreateAvatar(id, name string, pos Vec3) AvatarHandle {
	a := &MemoryAvatar{ID: id, Name: name, Pos: pos}
	r.avatars[a] = struct{}{}
	return a
}

func (r *MemoryRenderer) MoveAvatar(h AvatarHandle, pos Vec3) {
	a, ok := h.(*MemoryAvatar)
	if !ok || a == nil {
		return
	}
	a.Pos = pos
}

func (r *MemoryRenderer) ReleaseAvatar(h AvatarHandle) {
	a, ok := h.(*MemoryAvatar)
	if !ok || a == nil {
		return
	}
	delete(r.avatars, a)
}

func (r *MemoryRenderer) LiveAvatars() []AvatarRef {
	out := make([]AvatarRef, 0, len(r.avatars))
	for a := range r.avatars {
		out = append(out, AvatarRef{ID: a.ID, Handle: a})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Handle.(*MemoryAvatar).Name < out[j].Handle.(*MemoryAvatar).Name
	})
	return out
}

// Len is the number of live representations.
func (r *MemoryRenderer) Len() int { return len(r.avatars) }
