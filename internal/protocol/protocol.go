package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello        = "HELLO"
	TypeWelcome      = "WELCOME"
	TypeMove         = "MOVE"
	TypeRoster       = "ROSTER"
	TypePlayerJoined = "PLAYER_JOINED"
	TypePlayerLeft   = "PLAYER_LEFT"
	TypePlayerMoved  = "PLAYER_MOVED"
	TypeSyncCheck    = "SYNC_CHECK"
	TypeSyncResult   = "SYNC_RESULT"
	TypeLookup       = "LOOKUP"
	TypeLookupResult = "LOOKUP_RESULT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
