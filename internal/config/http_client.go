package config

import (
	"net/http"
)

func NewHTTPClient(cfg *AppConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.RequestTimeout,
	}
}
