package board

// EventType names a wire event using a custom enum type for better type
// safety. The names are the wire contract shared with drawing clients.
type EventType string

const (
	// Inbound from clients
	EventDraw         EventType = "draw"
	EventPathEnd      EventType = "path-end"
	EventCursor       EventType = "cursor"
	EventUndo         EventType = "undo"
	EventRedo         EventType = "redo"
	EventRequestState EventType = "request-state"

	// Outbound only
	EventUpdateState EventType = "update-state"
	EventPresence    EventType = "presence"
	EventError       EventType = "error-message"
)

func (e EventType) String() string {
	return string(e)
}

// Inbound reports whether clients are allowed to send this event type.
func (e EventType) Inbound() bool {
	switch e {
	case EventDraw, EventPathEnd, EventCursor, EventUndo, EventRedo, EventRequestState:
		return true
	default:
		return false
	}
}

// SnapshotPayload carries the full committed history of a room.
type SnapshotPayload struct {
	Paths []*Path `json:"paths"`
}

// PathPayload wraps the single path a structural event is about: the
// committed path on path-end, the moved path on undo/redo.
type PathPayload struct {
	Path *Path `json:"path"`
}

// PathRef is the inbound payload of a path-end event.
type PathRef struct {
	PathID string `json:"pathId"`
}

// CursorPayload is a live cursor position. SocketID is stamped by the server
// before the payload is relayed to the rest of the room.
type CursorPayload struct {
	XN       float64 `json:"xN"`
	YN       float64 `json:"yN"`
	Name     string  `json:"name,omitempty"`
	Color    string  `json:"color,omitempty"`
	SocketID string  `json:"socketId,omitempty"`
}

// PresencePayload announces a membership change to a room.
type PresencePayload struct {
	Type         string   `json:"type"`
	ConnectionID string   `json:"connectionId"`
	User         UserInfo `json:"user"`
}

// ErrorPayload is sent only to the connection whose input was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}
