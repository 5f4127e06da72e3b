// Package server wires the coordination core and the room directory into the
// process-wide instances the HTTP handlers serve from.
package server

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/parlor-chat/parlor/internal/chat"
	"github.com/parlor-chat/parlor/internal/directory"
)

var (
	hubOnce       sync.Once
	coreHub       *chat.Hub
	roomDirectory *directory.Store
)

// NewLogger returns a slog.Logger with formatting and level based on env:
// JSON at INFO for prod, text at DEBUG otherwise.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}

// StartHub builds the chat hub and room directory from the active
// configuration. It must run before the HTTP server starts accepting
// WebSocket upgrades; calling it again is a no-op.
func StartHub() {
	hubOnce.Do(func() {
		cfg := currentConfig()
		logger := NewLogger(cfg.Env)
		slog.SetDefault(logger)

		coreHub = chat.NewHub(chat.Options{
			Logger:        logger,
			TypingTimeout: cfg.TypingTimeout,
			MaxMessageLen: cfg.MaxMessageLength,
			RoomIdleTTL:   cfg.RoomIdleTTL,
			OnMessage: func(room string, msg chat.Message) {
				if roomDirectory != nil {
					roomDirectory.RecordMessage(room, msg.Timestamp)
				}
			},
		})
		roomDirectory = directory.NewStore(coreHub)

		logger.Info("hub started",
			"typing_timeout", cfg.TypingTimeout,
			"max_message_length", cfg.MaxMessageLength,
			"room_idle_ttl", cfg.RoomIdleTTL)
	})
}

// GetHub returns the global hub instance for shutdown coordination.
func GetHub() *chat.Hub {
	return coreHub
}

// GetDirectory returns the global room directory.
func GetDirectory() *directory.Store {
	return roomDirectory
}

// ShutdownHub gracefully stops the hub, waiting up to timeout.
func ShutdownHub(timeout time.Duration) error {
	if coreHub == nil {
		return nil
	}
	return coreHub.Shutdown(timeout)
}
