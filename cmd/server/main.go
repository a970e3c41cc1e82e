package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canvas-service/internal/adapters/kafka"
	"canvas-service/internal/api/routes"
	"canvas-service/internal/board"
	"canvas-service/internal/config"
	"canvas-service/internal/database"
	"canvas-service/internal/services"
	"canvas-service/internal/websocket"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("starting canvas server")

	// Presence and the cross-instance bus are optional; the core works
	// standalone when no Redis is configured.
	var presence *services.PresenceService
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisConnection(&cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		presence = services.NewPresenceService(redisClient, slog.Default())
	}

	// The stroke journal is optional as well.
	var journal board.Journal
	var strokeJournal *services.StrokeJournal
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		strokeJournal = services.NewStrokeJournal(producer, cfg.Kafka.Topic, slog.Default())
		go strokeJournal.Run()
		journal = strokeJournal
	}

	registry := board.NewRegistry()

	hub := websocket.NewHub(presence, slog.Default())
	router := board.NewSessionRouter(registry, hub, journal, slog.Default())
	hub.Bind(router)
	go hub.Run()

	apiRouter := routes.NewRouter(hub, registry, presence)
	apiRouter.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiRouter.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()
	if strokeJournal != nil {
		strokeJournal.Close()
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}
