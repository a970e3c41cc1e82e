package handlers

import (
	"github.com/gin-gonic/gin"

	"canvas-service/internal/websocket"
)

type WSHandler struct {
	hub *websocket.Hub
}

func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades the connection and hands it to the hub. Join
// parameters (room, username, color) come in as query parameters:
// /api/v1/ws?room=r1&username=alice&color=%23ff0000
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWS(h.hub, c.Writer, c.Request)
}
