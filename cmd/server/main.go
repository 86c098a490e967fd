package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/umar/campus-chat/internal/auth"
	"github.com/umar/campus-chat/internal/chat"
	"github.com/umar/campus-chat/internal/config"
	"github.com/umar/campus-chat/internal/conversation"
	"github.com/umar/campus-chat/internal/database"
	"github.com/umar/campus-chat/internal/handlers"
	"github.com/umar/campus-chat/internal/middleware"
	"github.com/umar/campus-chat/internal/obs"
	redisc "github.com/umar/campus-chat/internal/redis"
)

// chatStore is everything the chat path needs from persistence.
type chatStore interface {
	chat.MessageStore
	chat.ReadMarkerStore
	conversation.RoomIndex
	conversation.ReadMarkers
	conversation.MessageReader
	handlers.Pinger
}

type directory interface {
	conversation.ItemDirectory
	conversation.UserDirectory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := obs.NewLogger(cfg.Env, obs.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	slog.Info("starting chat server", "env", cfg.Env, "db_driver", cfg.DBDriver)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize storage
	var (
		store chatStore
		dir   directory
	)
	switch cfg.DBDriver {
	case config.DriverMemory:
		memDir := database.NewMemoryDirectory()
		if cfg.MemorySeedFile != "" {
			if err := seedDirectory(memDir, cfg.MemorySeedFile); err != nil {
				slog.Error("failed to seed directory", "error", err)
				os.Exit(1)
			}
		} else {
			slog.Warn("MEMORY_SEED_FILE not set; conversation lists will be empty")
		}
		store, dir = database.NewMemoryStore(cfg.MaxMessageLength), memDir
		slog.Warn("using in-memory store; data is lost on restart")
	default:
		if cfg.DBDriver == config.DriverSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o755); err != nil {
				slog.Error("failed to create data directory", "error", err)
				os.Exit(1)
			}
		}
		db, err := database.InitDB(cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to init database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("connected to database", "driver", cfg.DBDriver)

		if err := database.RunMigrations(db, cfg.DBDriver); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("database migrations complete")

		sqlStore := database.NewStore(db, cfg.MaxMessageLength)
		store, dir = sqlStore, sqlStore
	}

	// Fan-out: Redis when configured, otherwise this instance only
	registry := chat.NewRegistry(logger)
	var (
		publisher chat.Publisher
		presence  chat.Presence
	)
	if cfg.RedisURL != "" {
		redisClient, err := redisc.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to init Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.Info("connected to Redis")

		publisher = redisc.NewRoomPublisher(redisClient)
		presence = redisc.NewPresence(redisClient)
		go func() {
			err := redisc.SubscribeRooms(ctx, redisClient, func(roomID string, data []byte) {
				registry.Broadcast(roomID, data)
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("room subscription ended", "error", err)
			}
		}()
	} else {
		slog.Info("REDIS_URL not set; broadcasting locally only")
	}

	service := chat.NewService(store, store, publisher, registry, logger)
	hub := chat.NewHub(registry, service, presence, chat.HubOptions{
		MessagesPerSecond: cfg.MessageRatePerSec,
		Burst:             cfg.MessageBurst,
		MaxContentLength:  cfg.MaxMessageLength,
	}, logger)
	aggregator := conversation.NewAggregator(store, dir, dir, store, store, logger)

	// Set up router
	router := mux.NewRouter()
	router.Use(middleware.Metrics)
	router.Use(middleware.Logging)

	// Public routes
	router.HandleFunc("/health", handlers.Health(store)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// WebSocket
	router.HandleFunc("/ws/{room_id}/{client_name}", chat.ServeWS(hub, cfg.JWTSecret)).Methods("GET")

	// Protected routes
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.HandleFunc("/chat/{room_id}", handlers.GetHistory(service)).Methods("GET")
	protected.HandleFunc("/chat/{room_id}/read", handlers.MarkRead(service)).Methods("POST")
	protected.HandleFunc("/chat/{room_id}/online", handlers.OnlineMembers(hub)).Methods("GET")
	protected.HandleFunc("/users/chats", handlers.ListConversations(aggregator)).Methods("GET")

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		// CORS wraps the router so preflight requests never reach route matching or auth
		Handler:      middleware.CORS(cfg.CORSOrigin)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// stop accepting upgrades before closing the sessions already open
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
		hub.Shutdown()
		os.Exit(1)
	}
	hub.Shutdown()
	stop()

	slog.Info("server stopped gracefully")
}

func seedDirectory(dir *database.MemoryDirectory, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return dir.Seed(f)
}
