package scene

import "runevale.gg/internal/protocol"

// Event is one inbound network event. Events are queued on the scene inbox
// and drained at the top of every frame, so handlers run in arrival order on
// the loop goroutine.
type Event interface {
	isEvent()
}

// RosterEvent carries the full authoritative snapshot of known players.
type RosterEvent struct {
	Players []protocol.Player
}

type JoinedEvent struct {
	Player protocol.Player
}

type LeftEvent struct {
	ID string
}

type MovedEvent struct {
	ID      string
	X, Y, Z float64
}

// SyncCheckEvent asks which of the server's ids the client does not know.
// Respond is invoked on the loop goroutine with the missing subset.
type SyncCheckEvent struct {
	ReqID   string
	IDs     []string
	Respond func(missing []string)
}

func (RosterEvent) isEvent()    {}
func (JoinedEvent) isEvent()    {}
func (LeftEvent) isEvent()      {}
func (MovedEvent) isEvent()     {}
func (SyncCheckEvent) isEvent() {}
