package main

import (
	"SocialPulse/internal/bootstrap"
	"SocialPulse/internal/config"
	"SocialPulse/internal/websocket"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
)

// Headless client: connects to the realtime feed and logs every event the
// stream adapters care about until interrupted.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadAppConfig()

	client, err := bootstrap.Init(cfg)
	if err != nil {
		slog.Error("Failed to initialize client", "error", err)
		os.Exit(1)
	}

	logEvent := func(eventType websocket.EventType) func(json.RawMessage) {
		return func(payload json.RawMessage) {
			slog.Info("Event received", "type", eventType, "payload", string(payload))
		}
	}
	for _, eventType := range []websocket.EventType{
		websocket.EventPrivateMessage,
		websocket.EventMessagesRead,
		websocket.EventUserTyping,
		websocket.EventUserStatusUpdate,
		websocket.EventNotificationUpdate,
		websocket.EventFollowRequest,
		websocket.EventFollowRequestAccepted,
	} {
		client.Manager.Subscribe(eventType, logEvent(eventType))
	}

	if err := client.Connect(); err != nil {
		slog.Warn("Initial dial failed, reconnecting with backoff", "error", err)
	}
	slog.Info("Connected to realtime feed", "server", cfg.ServerURL, "viewer", client.Viewer.ID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	client.Close()
}
