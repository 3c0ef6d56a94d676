package main

import (
	"SocialPulse/internal/config"
	"SocialPulse/internal/devserver"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// Development peer for the realtime client: in-memory backend plus the
// websocket fan-out, enough to exercise every stream adapter locally.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadDevServerConfig()
	server := devserver.NewServer(cfg.JWTSecret)

	addr := fmt.Sprintf(":%s", cfg.Port)
	slog.Info("Starting development server", "port", cfg.Port)

	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
