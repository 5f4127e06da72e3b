// Package server manages individual WebSocket clients, handling read/write
// pumps, event dispatch, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parlor-chat/parlor/internal/chat"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 54 * time.Second
	// Outbound event buffer per connection.
	sendBufferSize = 256
)

// Client is one WebSocket connection to the Parlor server. It decodes
// inbound event envelopes, dispatches them to the chat hub in arrival order,
// and implements chat.Session for outbound delivery.
type Client struct {
	conn   *websocket.Conn
	hub    *chat.Hub
	connID string
	addr   string

	send chan []byte
	quit chan struct{}

	quitOnce       sync.Once
	disconnectOnce sync.Once

	maxFrameSize int64
}

// NewClient wraps an upgraded WebSocket connection. The caller must register
// it with the hub (setting its connection id) before starting the pumps.
func NewClient(conn *websocket.Conn, hub *chat.Hub, addr string) *Client {
	cfg := currentConfig()
	// Envelope framing plus UTF-8 headroom over the content limit.
	maxFrame := int64(cfg.MaxMessageLength)*4 + 512
	if conn != nil {
		conn.SetReadLimit(maxFrame)
	}

	return &Client{
		conn:         conn,
		hub:          hub,
		addr:         addr,
		send:         make(chan []byte, sendBufferSize),
		quit:         make(chan struct{}),
		maxFrameSize: maxFrame,
	}
}

// Deliver implements chat.Session. It never blocks: events for a connection
// whose send buffer is full are dropped and reported to the hub as a failed
// delivery.
func (c *Client) Deliver(ev chat.Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshaling outbound event", "addr", c.addr, "err", err)
		return false
	}

	select {
	case <-c.quit:
		return false
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown stops the write pump exactly once.
func (c *Client) shutdown() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// disconnect routes the teardown through the hub's serialized leave path
// exactly once, no matter how many error paths race here.
func (c *Client) disconnect() {
	c.disconnectOnce.Do(func() {
		c.hub.Disconnect(c.connID)
	})
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Error("setting initial read deadline", "addr", c.addr, "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			slog.Error("setting read deadline in pong handler", "addr", c.addr, "err", err)
		}
		return nil
	})
}

// handleReadError logs appropriate messages based on the error type and
// always ends the read loop; an abrupt close is routine, not a failure.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("frame exceeded maximum size", "addr", c.addr, "limit", c.maxFrameSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		slog.Debug("client disconnected", "addr", c.addr, "err", err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		slog.Debug("client connection closed", "addr", c.addr, "err", err)
	default:
		slog.Warn("websocket read error", "addr", c.addr, "err", err)
	}
}

// dispatch decodes one inbound frame and hands it to the hub. Rejections are
// reported back to this connection only; nothing reaches other participants.
func (c *Client) dispatch(raw []byte) {
	var env chat.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.reportError(&chat.Error{Kind: chat.KindInvalidInput, Msg: "malformed event frame"})
		return
	}

	var err error
	switch env.Event {
	case chat.EventJoin:
		var p chat.JoinPayload
		if jsonErr := json.Unmarshal(env.Data, &p); jsonErr != nil {
			err = &chat.Error{Kind: chat.KindInvalidInput, Msg: "malformed join payload"}
			break
		}
		err = c.hub.Join(c.connID, p.Username, p.Room)
	case chat.EventSendMessage:
		var p chat.SendMessagePayload
		if jsonErr := json.Unmarshal(env.Data, &p); jsonErr != nil {
			err = &chat.Error{Kind: chat.KindInvalidInput, Msg: "malformed message payload"}
			break
		}
		_, err = c.hub.SendMessage(c.connID, p.Content)
	case chat.EventTyping:
		err = c.hub.Typing(c.connID)
	case chat.EventStopTyping:
		err = c.hub.StopTyping(c.connID)
	case chat.EventSwitchRoom:
		var p chat.SwitchRoomPayload
		if jsonErr := json.Unmarshal(env.Data, &p); jsonErr != nil {
			err = &chat.Error{Kind: chat.KindInvalidInput, Msg: "malformed switch-room payload"}
			break
		}
		err = c.hub.SwitchRoom(c.connID, p.NewRoom)
	default:
		err = &chat.Error{Kind: chat.KindInvalidInput, Msg: "unknown event type"}
	}

	if err != nil {
		c.reportError(err)
	}
}

// reportError sends contract errors back to the offending connection;
// anything outside the contract is only logged.
func (c *Client) reportError(err error) {
	kind := chat.KindOf(err)
	if kind == "" {
		slog.Warn("rejecting event", "addr", c.addr, "err", err)
		return
	}
	c.Deliver(chat.Event{
		Event: chat.EventError,
		Data:  chat.ErrorPayload{Kind: string(kind), Message: err.Error()},
	})
}

// readPump reads frames until the connection dies and dispatches them in
// arrival order, which gives each connection's events a total order through
// the hub. The deferred teardown runs for normal and abrupt closes alike.
func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		c.shutdown()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			slog.Error("closing connection in readPump", "addr", c.addr, "err", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.dispatch(raw)
	}
}

// writePump forwards queued outbound events and keeps the connection alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			slog.Error("closing connection in writePump", "addr", c.addr, "err", err)
		}
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Error("setting write deadline", "addr", c.addr, "err", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					slog.Warn("writing event", "addr", c.addr, "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Error("setting write deadline for ping", "addr", c.addr, "err", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
