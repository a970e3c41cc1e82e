package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"canvas-service/internal/api/handlers"
	"canvas-service/internal/api/middleware"
	"canvas-service/internal/board"
	"canvas-service/internal/services"
	"canvas-service/internal/websocket"
)

type Router struct {
	engine      *gin.Engine
	wsHandler   *handlers.WSHandler
	roomHandler *handlers.RoomHandler
	rateLimitMW *middleware.RateLimitMiddleware
}

func NewRouter(hub *websocket.Hub, registry *board.Registry, presence *services.PresenceService) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	return &Router{
		engine:      engine,
		wsHandler:   handlers.NewWSHandler(hub),
		roomHandler: handlers.NewRoomHandler(registry),
		rateLimitMW: middleware.NewRateLimitMiddleware(presence),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; join parameters travel in the query string
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	// Read-only room views
	rooms := api.Group("/rooms")
	rooms.Use(r.rateLimitMW.RateLimitIP(100, time.Minute)) // 100 requests per minute per IP
	{
		rooms.GET("", r.roomHandler.ListRooms)
		rooms.GET("/:id/state", r.roomHandler.GetRoomState)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
