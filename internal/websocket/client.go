package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"canvas-service/internal/board"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Draw fragments and cursor updates are
	// small; snapshots only ever travel outbound.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

// Client is one websocket connection: a member of exactly one room from
// connect to disconnect.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	roomID string
	user   board.UserInfo
	send   chan []byte

	// Connection state management
	ctx        context.Context
	cancel     context.CancelFunc
	closed     int32 // atomic flag to track if client is closed
	sendClosed int32 // atomic flag to track if send channel is closed

	// Goroutine coordination
	wg sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, roomID string, user board.UserInfo) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:     uuid.New().String(),
		hub:    hub,
		conn:   conn,
		roomID: roomID,
		user:   user,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) GetID() string {
	return c.id
}

func (c *Client) GetRoomID() string {
	return c.roomID
}

// isClosed returns true if the client is closed
func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

// closeSendChannel safely closes the send channel
func (c *Client) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// enqueue hands an already-encoded frame to the write pump. A full send
// buffer means the peer cannot keep up; the client is dropped rather than
// letting one slow reader stall the room.
func (c *Client) enqueue(data []byte) error {
	if c.isClosed() || atomic.LoadInt32(&c.sendClosed) == 1 {
		return ErrClientDisconnected
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("send buffer full, closing client", "connID", c.id, "roomID", c.roomID)
		c.close()
		return ErrClientDisconnected
	}
}

func (c *Client) sendError(message string) {
	c.enqueue(errorEnvelope(message))
}

func (c *Client) readPump() {
	c.wg.Add(1)
	defer func() {
		c.wg.Done()
		c.close()

		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("timeout sending unregister request", "connID", c.id)
		}

		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket error", "connID", c.id, "error", err)
			} else {
				slog.Debug("websocket connection closed", "connID", c.id, "error", err)
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(messageBytes, &envelope); err != nil {
			slog.Debug("failed to unmarshal event", "connID", c.id, "error", err)
			c.sendError("Invalid message format.")
			continue
		}

		select {
		case c.hub.inbound <- &inboundEvent{Client: c, Envelope: &envelope}:
		case <-time.After(5 * time.Second):
			slog.Warn("timeout sending event to hub", "connID", c.id)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	c.wg.Add(1)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.wg.Done()
		ticker.Stop()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("error writing message", "connID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("error sending ping", "connID", c.id, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// ServeWS upgrades the request and registers the connection with the hub.
// Join parameters arrive once, as query parameters: room (default "default"),
// username, color.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	roomID := query.Get("room")
	if roomID == "" {
		roomID = "default"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	user := board.UserInfo{
		Username: query.Get("username"),
		Color:    query.Get("color"),
	}

	client := NewClient(hub, conn, roomID, user)
	if client.user.Username == "" {
		client.user.Username = "User-" + client.id[:4]
	}

	slog.Info("new websocket connection", "connID", client.id, "roomID", roomID, "username", client.user.Username)

	select {
	case hub.register <- client:
	case <-time.After(5 * time.Second):
		slog.Error("timeout sending registration request", "connID", client.id)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
