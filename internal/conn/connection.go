// Package conn wraps a single websocket connection: the read pump decodes
// and rate-limits inbound frames and dispatches them against a session
// registry and table, while the write pump drains an outbound queue and
// keeps the peer alive with periodic pings. Grounded on the teacher's
// internal/server/connection.go readPump/writePump/handleMessage shape,
// re-targeted from the teacher's custom Message envelope onto
// internal/protocol's tagged-union JSON codec.
package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tablestack/pokerserver/internal/protocol"
	"github.com/tablestack/pokerserver/internal/ratelimit"
)

const (
	// MaxFrameBytes caps a single inbound frame (spec §4.5).
	MaxFrameBytes = 4096

	// InactivityTimeout closes a connection that sends nothing, not even a
	// Ping, within this window (spec §4.5).
	InactivityTimeout = 600 * time.Second

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	sendBuffer = 256
)

// Handler reacts to decoded client messages; Server implements it by
// routing into session.Registry and engine.Game.
type Handler interface {
	HandleConnect(c *Connection)
	HandleAction(c *Connection, msg protocol.ActionMsg)
	HandleChat(c *Connection, msg protocol.ChatMsg)
	HandleSitOut(c *Connection, out bool)
	HandleDisconnect(c *Connection)
}

// Connection wraps one websocket peer and the player/table it is currently
// associated with.
type Connection struct {
	ws     *websocket.Conn
	send   chan []byte
	logger *log.Logger
	lim    *ratelimit.Limiters

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	maxFrameBytes int
	inactivity    time.Duration

	hmacKey []byte          // nil disables the signed-envelope requirement
	nonces  *protocol.NonceCache

	mu       sync.RWMutex
	playerID string
	tableID  string
}

// New wraps ws with the spec §4.5 defaults (4096B frames, 600s inactivity
// timeout), ready for Start.
func New(ws *websocket.Conn, logger *log.Logger) *Connection {
	return NewWithLimits(ws, logger, MaxFrameBytes, InactivityTimeout)
}

// NewWithLimits wraps ws with caller-supplied frame size and inactivity
// limits, letting the server apply its configured POKER_MAX_MESSAGE_SIZE /
// POKER_INACTIVITY_TIMEOUT_MS overrides (spec §6). The signed-envelope
// requirement is disabled.
func NewWithLimits(ws *websocket.Conn, logger *log.Logger, maxFrameBytes int, inactivity time.Duration) *Connection {
	return NewWithAuth(ws, logger, maxFrameBytes, inactivity, nil, nil)
}

// NewWithAuth wraps ws like NewWithLimits, additionally requiring every
// inbound frame to be a protocol.SignedMessage verified against hmacKey and
// nonces (spec §4.4's optional authentication). A nil hmacKey disables the
// requirement regardless of nonces.
func NewWithAuth(ws *websocket.Conn, logger *log.Logger, maxFrameBytes int, inactivity time.Duration, hmacKey []byte, nonces *protocol.NonceCache) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ws:            ws,
		send:          make(chan []byte, sendBuffer),
		logger:        logger,
		lim:           ratelimit.New(),
		ctx:           ctx,
		cancel:        cancel,
		maxFrameBytes: maxFrameBytes,
		inactivity:    inactivity,
		hmacKey:       hmacKey,
		nonces:        nonces,
	}
}

// Start launches the read and write pumps.
func (c *Connection) Start(h Handler) {
	go c.writePump()
	go c.readPump(h)
}

// Close tears the connection down, idempotently.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		_ = c.ws.Close()
	})
}

// Send enqueues a wire-ready frame, closing the connection if the outbound
// buffer is saturated (spec §4.5: a slow consumer is disconnected rather
// than allowed to apply backpressure to the table).
func (c *Connection) Send(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("outbound buffer full, closing connection", "player", c.PlayerID())
		c.Close()
	}
}

// SendMessage encodes and enqueues msg.
func (c *Connection) SendMessage(msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		c.logger.Error("failed to encode outbound message", "error", err)
		return
	}
	c.Send(data)
}

func (c *Connection) SetPlayerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}

func (c *Connection) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) SetTableID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = id
}

func (c *Connection) TableID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) readPump(h Handler) {
	defer func() {
		h.HandleDisconnect(c)
		c.Close()
	}()

	c.ws.SetReadLimit(int64(c.maxFrameBytes))
	_ = c.ws.SetReadDeadline(time.Now().Add(c.inactivity))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.inactivity))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.inactivity))

		if c.hmacKey != nil {
			data, err = c.verifyEnvelope(data)
			if err != nil {
				c.SendMessage(protocol.NewError(err.Error()))
				return
			}
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.SendMessage(protocol.NewError(err.Error()))
			continue
		}

		c.dispatch(h, msg)
	}
}

// verifyEnvelope unwraps a SignedMessage and returns its inner payload,
// per spec §4.4: verification happens before the inner payload is
// interpreted, and failure terminates the connection after one Error reply.
func (c *Connection) verifyEnvelope(data []byte) ([]byte, error) {
	var signed protocol.SignedMessage
	if err := json.Unmarshal(data, &signed); err != nil {
		return nil, fmt.Errorf("conn: decode signed envelope: %w", err)
	}
	payload, err := protocol.Verify(c.hmacKey, signed, c.nonces, time.Now())
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Connection) dispatch(h Handler, msg protocol.ClientMessage) {
	switch m := msg.(type) {
	case protocol.ConnectMsg:
		h.HandleConnect(c)
	case protocol.ActionMsg:
		if !c.lim.AllowAction() {
			c.SendMessage(protocol.NewError("rate limit exceeded"))
			return
		}
		h.HandleAction(c, m)
	case protocol.ChatMsg:
		if !c.lim.AllowChat() {
			c.SendMessage(protocol.NewError("rate limit exceeded"))
			return
		}
		h.HandleChat(c, m)
	case protocol.SitOutMsg:
		h.HandleSitOut(c, true)
	case protocol.ReturnMsg:
		h.HandleSitOut(c, false)
	case protocol.PingMsg:
		c.SendMessage(protocol.NewPong(m.Timestamp))
	default:
		c.logger.Warn("unhandled decoded message type", "type", fmt.Sprintf("%T", m))
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
