package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"canvas-service/internal/board"
	"canvas-service/internal/services"
)

var ErrClientDisconnected = fmt.Errorf("client disconnected")

type inboundEvent struct {
	Client   *Client
	Envelope *Envelope
}

// busMessage wraps a room broadcast for the Redis pub/sub bus. Instance lets
// the publisher skip its own echo.
type busMessage struct {
	Instance string          `json:"instance"`
	RoomID   string          `json:"roomId"`
	Envelope json.RawMessage `json:"envelope"`
}

// Hub owns every websocket client on this instance and implements
// board.Transport for the session router. Inbound events are handled to
// completion one at a time on the Run goroutine, so room state operations are
// totally ordered by arrival.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Client lookup by connection id
	connClients map[string]*Client

	// Local room membership
	roomClients map[string]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Inbound events from client read pumps
	inbound chan *inboundEvent

	// Event-to-broadcast policy, bound after construction
	router *board.SessionRouter

	// Optional presence tracking + cross-instance bus
	presence *services.PresenceService

	// Identifies this instance on the bus
	instanceID string

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// Guards the client and room maps
	mu sync.RWMutex

	logger *slog.Logger
}

func NewHub(presence *services.PresenceService, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:     make(map[*Client]bool),
		connClients: make(map[string]*Client),
		roomClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbound:     make(chan *inboundEvent),
		presence:    presence,
		instanceID:  uuid.New().String(),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Bind attaches the session router. Must be called before Run; the hub and
// router reference each other so one of them has to be wired up second.
func (h *Hub) Bind(router *board.SessionRouter) {
	h.router = router
}

func (h *Hub) Run() {
	if h.presence != nil {
		go h.consumeBus()
	}

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.inbound:
			h.handleInbound(event)

		case <-h.ctx.Done():
			h.logger.Info("websocket hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.connClients[client.id] = client
	if h.roomClients[client.roomID] == nil {
		h.roomClients[client.roomID] = make(map[*Client]bool)
	}
	h.roomClients[client.roomID][client] = true
	h.mu.Unlock()

	h.logger.Info("client registered", "connID", client.id, "roomID", client.roomID, "username", client.user.Username)

	if h.presence != nil {
		if err := h.presence.SetConnectionOnline(h.ctx, client.id, client.roomID, client.user.Username); err != nil {
			h.logger.Error("failed to record presence", "connID", client.id, "error", err)
		}
	}

	// Membership is in place, so the join presence broadcast below reaches
	// the joiner too.
	h.router.HandleConnect(client.id, client.roomID, client.user)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	delete(h.connClients, client.id)
	if room := h.roomClients[client.roomID]; room != nil {
		delete(room, client)
		if len(room) == 0 {
			delete(h.roomClients, client.roomID)
		}
	}
	h.mu.Unlock()

	client.closeSendChannel()

	h.logger.Info("client unregistered", "connID", client.id, "roomID", client.roomID)

	if h.presence != nil {
		if err := h.presence.SetConnectionOffline(h.ctx, client.id, client.roomID); err != nil {
			h.logger.Error("failed to clear presence", "connID", client.id, "error", err)
		}
	}

	h.router.HandleDisconnect(client.id)
}

func (h *Hub) handleInbound(event *inboundEvent) {
	if !event.Envelope.Type.Inbound() {
		event.Client.sendError("Unsupported event type.")
		return
	}
	h.router.HandleEvent(event.Client.id, event.Envelope.Type, event.Envelope.Data)
}

// Unicast implements board.Transport.
func (h *Hub) Unicast(connID string, event board.EventType, payload any) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	client := h.connClients[connID]
	h.mu.RUnlock()

	if client != nil {
		client.enqueue(data)
	}
}

// BroadcastToRoom implements board.Transport.
func (h *Hub) BroadcastToRoom(roomID string, event board.EventType, payload any) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	h.deliverToRoom(roomID, nil, data)
	h.publishToBus(roomID, data)
}

// BroadcastToRoomExcept implements board.Transport. The excluded connection
// is always local to this instance, so sibling instances deliver to all of
// their members.
func (h *Hub) BroadcastToRoomExcept(roomID, connID string, event board.EventType, payload any) {
	data, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	except := h.connClients[connID]
	h.mu.RUnlock()

	h.deliverToRoom(roomID, except, data)
	h.publishToBus(roomID, data)
}

// deliverToRoom fans an encoded envelope out to local room members.
func (h *Hub) deliverToRoom(roomID string, except *Client, data []byte) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.roomClients[roomID]))
	for client := range h.roomClients[roomID] {
		if client != except {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		client.enqueue(data)
	}
}

// publishToBus forwards the envelope to sibling instances. Best-effort and
// off the event loop; a dead Redis never stalls a broadcast.
func (h *Hub) publishToBus(roomID string, envelope []byte) {
	if h.presence == nil {
		return
	}

	msg, err := json.Marshal(busMessage{
		Instance: h.instanceID,
		RoomID:   roomID,
		Envelope: envelope,
	})
	if err != nil {
		return
	}

	go func() {
		if err := h.presence.PublishRoomEvent(h.ctx, roomID, msg); err != nil {
			h.logger.Debug("bus publish failed", "roomID", roomID, "error", err)
		}
	}()
}

// consumeBus forwards room events published by sibling instances to local
// members, skipping this instance's own echoes.
func (h *Hub) consumeBus() {
	pubsub := h.presence.SubscribeRooms(h.ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var bm busMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				h.logger.Warn("malformed bus message", "error", err)
				continue
			}
			if bm.Instance == h.instanceID {
				continue
			}
			h.deliverToRoom(bm.RoomID, nil, bm.Envelope)

		case <-h.ctx.Done():
			return
		}
	}
}
