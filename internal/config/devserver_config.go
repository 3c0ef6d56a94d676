package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

type DevServerConfig struct {
	Port      string
	JWTSecret string
}

func LoadDevServerConfig() *DevServerConfig {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from system environment variables")
	}

	return &DevServerConfig{
		Port:      getEnv("DEVSERVER_PORT", "8080"),
		JWTSecret: mustGetEnv("JWT_SECRET"),
	}
}
