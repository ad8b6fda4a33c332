package protocol

// Player is the wire representation of one player in the world.
type Player struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	PlayerName      string            `json:"player_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	PlayerID        string  `json:"player_id"`
	SendIntervalMs  int     `json:"send_interval_ms,omitempty"`
	SpawnX          float64 `json:"spawn_x"`
	SpawnY          float64 `json:"spawn_y"`
	SpawnZ          float64 `json:"spawn_z"`
}

// MOVE (client -> server): throttled local position report.
type MoveMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Z               float64 `json:"z"`
}

// ROSTER (server -> client): full snapshot of currently known players.
type RosterMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Players         []Player `json:"players"`
}

// PLAYER_JOINED (server -> client)
type PlayerJoinedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Player          Player `json:"player"`
}

// PLAYER_LEFT (server -> client)
type PlayerLeftMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
}

// PLAYER_MOVED (server -> client)
type PlayerMovedMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ID              string  `json:"id"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Z               float64 `json:"z"`
}

// SYNC_CHECK (server -> client, request): the server's authoritative id list.
// The client answers with SYNC_RESULT carrying the ids it does not know.
type SyncCheckMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ReqID           string   `json:"req_id"`
	IDs             []string `json:"ids"`
}

type SyncResultMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ReqID           string   `json:"req_id"`
	MissingIDs      []string `json:"missing_ids"`
}

// LOOKUP (client -> server, request): fetch authoritative player data by id.
type LookupMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	ID              string `json:"id"`
}

// LOOKUP_RESULT (server -> client): Player is nil when the id is unknown
// server-side.
type LookupResultMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ReqID           string  `json:"req_id"`
	Player          *Player `json:"player"`
	Code            string  `json:"code,omitempty"`
}
