package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"canvas-service/internal/board"
	"canvas-service/pkg/response"
)

// RoomHandler exposes read-only views of room state over HTTP. Writes only
// happen through the websocket session router.
type RoomHandler struct {
	registry *board.Registry
}

func NewRoomHandler(registry *board.Registry) *RoomHandler {
	return &RoomHandler{registry: registry}
}

// ListRooms returns every room known to this instance with member and path
// counts.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	response.OK(c, gin.H{"rooms": h.registry.Summaries()})
}

// GetRoomState returns the full committed snapshot of one room, in the same
// shape as the update-state websocket event. Lookups never create rooms;
// asking for an unknown room is a 404, not a new empty room.
func (h *RoomHandler) GetRoomState(c *gin.Context) {
	roomID := c.Param("id")

	room, ok := h.registry.Lookup(roomID)
	if !ok {
		response.Error(c, http.StatusNotFound, "room not found")
		return
	}

	response.OK(c, board.SnapshotPayload{Paths: room.State.Serialize()})
}
