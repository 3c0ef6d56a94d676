package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// ServerURL is the http(s) base URL of the social network API. The
	// websocket endpoint is derived from it.
	ServerURL string

	// Token is the bearer token issued by the authentication collaborator.
	Token string

	HeartbeatInterval    time.Duration
	HandshakeTimeout     time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectFactor      float64
	MaxReconnectAttempts int

	// TypingExpiry is how long a received typing indicator stays visible
	// without renewal; TypingSendInterval throttles outbound indicators.
	TypingExpiry       time.Duration
	TypingSendInterval time.Duration

	// ProvisionalMatchWindow bounds how old a provisional message may be
	// and still be matched against its server echo.
	ProvisionalMatchWindow time.Duration

	RequestTimeout time.Duration
}

func LoadAppConfig() *AppConfig {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from system environment variables")
	}

	return &AppConfig{
		ServerURL: getEnv("SERVER_URL", "http://localhost:8080"),
		Token:     mustGetEnv("AUTH_TOKEN"),

		HeartbeatInterval:    getEnvAsDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		HandshakeTimeout:     getEnvAsDuration("HANDSHAKE_TIMEOUT", 10*time.Second),
		ReconnectBaseDelay:   getEnvAsDuration("RECONNECT_BASE_DELAY", 3*time.Second),
		ReconnectFactor:      getEnvAsFloat("RECONNECT_FACTOR", 1.5),
		MaxReconnectAttempts: getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 5),

		TypingExpiry:       getEnvAsDuration("TYPING_EXPIRY", 3*time.Second),
		TypingSendInterval: getEnvAsDuration("TYPING_SEND_INTERVAL", 500*time.Millisecond),

		ProvisionalMatchWindow: getEnvAsDuration("PROVISIONAL_MATCH_WINDOW", 30*time.Second),

		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
	}
}

func mustGetEnv(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		slog.Error("Environment variable is required but not set", "key", key)
		os.Exit(1)
	}
	return value
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		slog.Warn("Environment variable must be an integer, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		slog.Warn("Environment variable must be a float, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		slog.Warn("Environment variable must be a duration, using fallback", "key", key, "value", valStr, "fallback", fallback)
		return fallback
	}
	return val
}
