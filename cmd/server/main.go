package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/parlor-chat/parlor/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load local .env (dev only).
	_ = godotenv.Load()

	cfg := server.NewConfigFromEnv()
	server.SetConfig(cfg)

	server.StartHub()

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(cfg.Port, mux)

	// Cancel on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server crashed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		slog.Error("http shutdown", "err", err)
	}
	if err := server.ShutdownHub(shutdownTimeout); err != nil {
		slog.Error("hub shutdown", "err", err)
		os.Exit(1)
	}
}
