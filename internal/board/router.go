package board

import (
	"encoding/json"
	"log/slog"
)

// Transport is the fan-out surface the router drives. Sends are
// fire-and-forget; slow or dead peers are the transport's problem.
type Transport interface {
	Unicast(connID string, event EventType, payload any)
	BroadcastToRoom(roomID string, event EventType, payload any)
	BroadcastToRoomExcept(roomID, connID string, event EventType, payload any)
}

// Journal receives a record of every structural change to a room's history.
// Implementations must never block or fail the calling handler.
type Journal interface {
	Record(roomID string, action string, path *Path)
}

// Journal action names.
const (
	ActionCommit = "commit"
	ActionUndo   = "undo"
	ActionRedo   = "redo"
)

// SessionRouter turns inbound connection events into state operations and
// decides what gets broadcast to whom. Events from a connection are inert
// until it has joined a room.
type SessionRouter struct {
	registry  *Registry
	transport Transport
	journal   Journal
	logger    *slog.Logger
}

func NewSessionRouter(registry *Registry, transport Transport, journal Journal, logger *slog.Logger) *SessionRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRouter{
		registry:  registry,
		transport: transport,
		journal:   journal,
		logger:    logger,
	}
}

// HandleConnect joins the connection to its room, announces it to the whole
// room (sender included) and brings the joiner up to the current state.
func (sr *SessionRouter) HandleConnect(connID, roomID string, user UserInfo) {
	room := sr.registry.Join(connID, roomID, user)

	sr.logger.Info("connection joined room", "connID", connID, "roomID", roomID, "username", user.Username)

	sr.transport.BroadcastToRoom(room.ID, EventPresence, PresencePayload{
		Type:         "join",
		ConnectionID: connID,
		User:         user,
	})
	sr.transport.Unicast(connID, EventUpdateState, SnapshotPayload{Paths: room.State.Serialize()})
}

// HandleDisconnect drops the connection's membership. No departure broadcast;
// a disconnect mid-stroke leaves its live path permanently uncommitted.
func (sr *SessionRouter) HandleDisconnect(connID string) {
	sr.registry.Leave(connID)
	sr.logger.Info("connection left", "connID", connID)
}

// HandleEvent dispatches one inbound event. Malformed payloads are answered
// with an error-message to the offender only; stale references are silent
// no-ops. Nothing here is allowed to take the room or process down.
func (sr *SessionRouter) HandleEvent(connID string, event EventType, data json.RawMessage) {
	room, ok := sr.registry.RoomFor(connID)
	if !ok {
		// Unjoined connections have no say.
		return
	}

	switch event {
	case EventDraw:
		sr.handleDraw(connID, room, data)
	case EventPathEnd:
		sr.handlePathEnd(connID, room, data)
	case EventCursor:
		sr.handleCursor(connID, room, data)
	case EventUndo:
		sr.handleHistory(room, room.State.Undo, EventUndo, ActionUndo)
	case EventRedo:
		sr.handleHistory(room, room.State.Redo, EventRedo, ActionRedo)
	case EventRequestState:
		sr.transport.Unicast(connID, EventUpdateState, SnapshotPayload{Paths: room.State.Serialize()})
	default:
		sr.logger.Warn("unknown event type", "connID", connID, "event", event)
	}
}

// handleDraw accumulates the fragment into the room's live state and relays
// the raw bytes to everyone else in the room. The relay is an unmodified
// passthrough so peers see the stroke with no re-encoding latency; the live
// buffer only matters for late joiners and the eventual commit.
func (sr *SessionRouter) handleDraw(connID string, room *Room, data json.RawMessage) {
	var frag Fragment
	if err := json.Unmarshal(data, &frag); err != nil || !frag.Valid() {
		sr.rejectInput(connID, "Failed to process draw event.")
		return
	}

	room.State.AppendLivePoint(&frag)
	sr.transport.BroadcastToRoomExcept(room.ID, connID, EventDraw, data)
}

func (sr *SessionRouter) handlePathEnd(connID string, room *Room, data json.RawMessage) {
	var ref PathRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.PathID == "" {
		sr.rejectInput(connID, "Failed to end path.")
		return
	}

	path := room.State.CommitPath(ref.PathID)
	if path == nil {
		// Duplicate or stale commit: legitimate no-op, no broadcast.
		return
	}

	sr.transport.BroadcastToRoom(room.ID, EventPathEnd, PathPayload{Path: path})
	sr.record(room.ID, ActionCommit, path)
}

// handleCursor relays the position to the rest of the room tagged with the
// sender's id. Cursor positions are never stored.
func (sr *SessionRouter) handleCursor(connID string, room *Room, data json.RawMessage) {
	var cur CursorPayload
	if err := json.Unmarshal(data, &cur); err != nil {
		return
	}
	cur.SocketID = connID
	sr.transport.BroadcastToRoomExcept(room.ID, connID, EventCursor, cur)
}

// handleHistory runs an undo or redo. Structural edits to history are cheaper
// to reconcile by resending the whole snapshot than by replaying precise
// inverse operations against already-diverged clients, so the notice is
// always followed by a full update-state broadcast.
func (sr *SessionRouter) handleHistory(room *Room, op func() *Path, event EventType, action string) {
	path := op()
	if path == nil {
		return
	}

	sr.transport.BroadcastToRoom(room.ID, event, PathPayload{Path: path})
	sr.transport.BroadcastToRoom(room.ID, EventUpdateState, SnapshotPayload{Paths: room.State.Serialize()})
	sr.record(room.ID, action, path)
}

func (sr *SessionRouter) rejectInput(connID, message string) {
	sr.logger.Debug("rejected malformed input", "connID", connID, "reason", message)
	sr.transport.Unicast(connID, EventError, ErrorPayload{Message: message})
}

func (sr *SessionRouter) record(roomID, action string, path *Path) {
	if sr.journal == nil {
		return
	}
	sr.journal.Record(roomID, action, path)
}
