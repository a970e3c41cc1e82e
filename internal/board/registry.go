package board

import "sync"

// UserInfo is the display metadata a connection supplies when it joins.
// Opaque to the core beyond being echoed in presence events.
type UserInfo struct {
	Username string `json:"username"`
	Color    string `json:"color,omitempty"`
}

// Room pairs a room id with its drawing state. Rooms are created on first
// reference and live for the duration of the process.
type Room struct {
	ID    string
	State *State
}

// RoomSummary is the read-only view exposed to the HTTP API.
type RoomSummary struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
	Paths   int    `json:"paths"`
}

// Registry maps room ids to rooms and connection ids to the room they are
// currently in. A connection is in at most one room at a time: it joins once
// at connect and leaves on disconnect.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	connRoom map[string]*Room
	users    map[string]UserInfo
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		connRoom: make(map[string]*Room),
		users:    make(map[string]UserInfo),
	}
}

// GetOrCreate returns the room with the given id, creating it on demand.
func (r *Registry) GetOrCreate(roomID string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(roomID)
}

func (r *Registry) getOrCreateLocked(roomID string) *Room {
	room, ok := r.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID, State: NewState()}
		r.rooms[roomID] = room
	}
	return room
}

// Lookup returns the room with the given id without creating it.
func (r *Registry) Lookup(roomID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

// Join places a connection into a room, creating the room if needed, and
// records the connection's user metadata.
func (r *Registry) Join(connID, roomID string, user UserInfo) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.getOrCreateLocked(roomID)
	r.connRoom[connID] = room
	r.users[connID] = user
	return room
}

// Leave removes a connection's membership and metadata. The room itself is
// never evicted; an empty room keeps its history for late joiners.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connRoom, connID)
	delete(r.users, connID)
}

// RoomFor resolves the room a connection is currently joined to.
func (r *Registry) RoomFor(connID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.connRoom[connID]
	return room, ok
}

// UserFor returns the metadata recorded when the connection joined.
func (r *Registry) UserFor(connID string) (UserInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[connID]
	return user, ok
}

// Summaries lists every known room with its current member count.
func (r *Registry) Summaries() []RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make(map[string]int, len(r.rooms))
	for _, room := range r.connRoom {
		members[room.ID]++
	}

	out := make([]RoomSummary, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, RoomSummary{
			ID:      id,
			Members: members[id],
			Paths:   len(room.State.Serialize()),
		})
	}
	return out
}
