package adapter

import (
	"SocialPulse/internal/config"
	"SocialPulse/internal/helper"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIAdapter is the authenticated HTTP surface the stream adapters mutate
// server state through. The server echoes every effect back over the socket
// to all affected peers.
type APIAdapter struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewAPIAdapter(cfg *config.AppConfig, client *http.Client) *APIAdapter {
	return &APIAdapter{
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		token:   cfg.Token,
		client:  client,
	}
}

// Get fetches a read endpoint with a bounded retry on transient failures.
func (a *APIAdapter) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	_, err := helper.RetryWithBackoff(ctx, func() (struct{}, bool, error) {
		resp, err := a.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return struct{}{}, helper.ShouldRetryHTTP(nil, err), err
		}
		if err := a.decode(resp, out); err != nil {
			return struct{}{}, helper.ShouldRetryHTTP(resp, nil), err
		}
		return struct{}{}, false, nil
	}, 2, 250*time.Millisecond)
	return err
}

// Post issues a mutation. Mutations are not retried; the caller applies
// best-effort semantics and reconciles against the socket echo.
func (a *APIAdapter) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	resp, err := a.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return a.decode(resp, out)
}

func (a *APIAdapter) Put(ctx context.Context, path string) error {
	resp, err := a.do(ctx, http.MethodPut, path, nil, nil)
	if err != nil {
		return err
	}
	return a.decode(resp, nil)
}

func (a *APIAdapter) Delete(ctx context.Context, path string) error {
	resp, err := a.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return a.decode(resp, nil)
}

func (a *APIAdapter) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	endpoint := a.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decode drains the response, mapping non-2xx statuses to AppError with the
// server's error message when one is present.
func (a *APIAdapter) decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == "" {
			return helper.NewAppError(resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		slog.Warn("API request failed", "status", resp.StatusCode, "error", payload.Error)
		return helper.NewAppError(resp.StatusCode, payload.Error)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
