// Package ws is the websocket transport: it dials the world server, runs
// the HELLO/WELCOME handshake, pumps inbound events into the scene inbox,
// and carries outbound reports and lookups.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"runevale.gg/internal/protocol"
	"runevale.gg/internal/sim/scene"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	lookupTimeout    = 2 * time.Second
	outQueueSize     = 16
)

var ErrClosed = errors.New("ws: client closed")

type Client struct {
	conn    *websocket.Conn
	log     *log.Logger
	welcome protocol.WelcomeMsg

	out chan []byte

	mu      sync.Mutex
	pending map[string]chan *protocol.Player

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// Dial connects and completes the handshake. The returned client is idle
// until Start attaches it to a scene inbox.
func Dial(ctx context.Context, url, playerName string, logger *log.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      playerName,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: outQueueSize},
	}
	_ = conn.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("await WELCOME: %w", err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("expected WELCOME, got %q", base.Type)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("decode WELCOME: %w", err)
	}
	if welcome.ProtocolVersion != protocol.Version {
		_ = conn.Close()
		return nil, fmt.Errorf("protocol version mismatch: %s", welcome.ProtocolVersion)
	}
	if welcome.PlayerID == "" {
		_ = conn.Close()
		return nil, fmt.Errorf("WELCOME carried no player id")
	}

	cctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:    conn,
		log:     logger,
		welcome: welcome,
		out:     make(chan []byte, outQueueSize),
		pending: map[string]chan *protocol.Player{},
		ctx:     cctx,
		cancel:  cancel,
	}, nil
}

func (c *Client) Welcome() protocol.WelcomeMsg { return c.welcome }
func (c *Client) PlayerID() string             { return c.welcome.PlayerID }

// Spawn is the server-assigned starting position.
func (c *Client) Spawn() scene.Vec3 {
	return scene.Vec3{X: c.welcome.SpawnX, Y: c.welcome.SpawnY, Z: c.welcome.SpawnZ}
}

// Start launches the writer and reader pumps. Inbound events land on the
// scene inbox in arrival order; the reader is the inbox's only producer.
func (c *Client) Start(events chan<- scene.Event) {
	go c.writeLoop()
	go c.readLoop(events)
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case b, ok := <-c.out:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				if c.log != nil {
					c.log.Printf("write failed: %v", err)
				}
				c.Close()
				return
			}
		}
	}
}

func (c *Client) readLoop(events chan<- scene.Event) {
	defer c.Close()
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		ev := c.decode(base.Type, msg)
		if ev == nil {
			continue
		}
		select {
		case <-c.ctx.Done():
			return
		case events <- ev:
		}
	}
}

// decode maps one wire message onto a scene event. Unknown or malformed
// messages decode to nil and are skipped; inbound handling never fails the
// process.
func (c *Client) decode(msgType string, msg []byte) scene.Event {
	switch msgType {
	case protocol.TypeRoster:
		var m protocol.RosterMsg
		if json.Unmarshal(msg, &m) != nil {
			return nil
		}
		return scene.RosterEvent{Players: m.Players}

	case protocol.TypePlayerJoined:
		var m protocol.PlayerJoinedMsg
		if json.Unmarshal(msg, &m) != nil {
			return nil
		}
		return scene.JoinedEvent{Player: m.Player}

	case protocol.TypePlayerLeft:
		var m protocol.PlayerLeftMsg
		if json.Unmarshal(msg, &m) != nil {
			return nil
		}
		return scene.LeftEvent{ID: m.ID}

	case protocol.TypePlayerMoved:
		var m protocol.PlayerMovedMsg
		if json.Unmarshal(msg, &m) != nil {
			return nil
		}
		return scene.MovedEvent{ID: m.ID, X: m.X, Y: m.Y, Z: m.Z}

	case protocol.TypeSyncCheck:
		var m protocol.SyncCheckMsg
		if json.Unmarshal(msg, &m) != nil {
			return nil
		}
		reqID := m.ReqID
		return scene.SyncCheckEvent{
			ReqID: reqID,
			IDs:   m.IDs,
			Respond: func(missing []string) {
				c.sendJSON(protocol.SyncResultMsg{
					Type:            protocol.TypeSyncResult,
					ProtocolVersion: protocol.Version,
					ReqID:           reqID,
					MissingIDs:      missing,
				})
			},
		}

	case protocol.TypeLookupResult:
		var m protocol.LookupResultMsg
		if json.Unmarshal(msg, &m) != nil {
			return nil
		}
		c.resolveLookup(m.ReqID, m.Player)
		return nil

	default:
		return nil
	}
}

// SendMove implements scene.ReportSink. The queue never blocks the scene
// loop: a full queue is an error, the throttle keeps the report pending.
func (c *Client) SendMove(pos scene.Vec3) error {
	b, err := json.Marshal(protocol.MoveMsg{
		Type:            protocol.TypeMove,
		ProtocolVersion: protocol.Version,
		X:               pos.X,
		Y:               pos.Y,
		Z:               pos.Z,
	})
	if err != nil {
		return err
	}
	select {
	case <-c.ctx.Done():
		return ErrClosed
	case c.out <- b:
		return nil
	default:
		return errors.New("ws: send queue full")
	}
}

// Lookup implements scene.Directory: a correlated LOOKUP round-trip with a
// deadline. A nil player with nil error means the server does not know the
// id either.
func (c *Client) Lookup(id string) (*protocol.Player, error) {
	reqID := uuid.NewString()
	ch := make(chan *protocol.Player, 1)

	c.mu.Lock()
	c.pending[reqID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}()

	if !c.sendJSON(protocol.LookupMsg{
		Type:            protocol.TypeLookup,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		ID:              id,
	}) {
		return nil, ErrClosed
	}

	select {
	case <-c.ctx.Done():
		return nil, ErrClosed
	case p := <-ch:
		return p, nil
	case <-time.After(lookupTimeout):
		return nil, fmt.Errorf("lookup %s: timeout", id)
	}
}

func (c *Client) resolveLookup(reqID string, p *protocol.Player) {
	c.mu.Lock()
	ch, ok := c.pending[reqID]
	delete(c.pending, reqID)
	c.mu.Unlock()
	if ok {
		ch <- p
	}
}

func (c *Client) sendJSON(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	select {
	case <-c.ctx.Done():
		return false
	case c.out <- b:
		return true
	default:
		if c.log != nil {
			c.log.Printf("send queue full, dropping %T", v)
		}
		return false
	}
}

// Close tears the connection down and fails pending lookups. Safe to call
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

// Done closes when the client has shut down.
func (c *Client) Done() <-chan struct{} { return c.ctx.Done() }
