// Package provider talks to the streaming provider's REST API: album and
// playlist catalog reads, playlist writes, and the OAuth token pair that
// authenticates them. Batch reads are paced client-side; token refresh is
// deduplicated so racing callers cannot invalidate each other's refresh
// tokens.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmarcou/curator/internal/status"
)

const (
	requestTimeout = 30 * time.Second
	// batchPause is the client-side pacing delay between catalog batch
	// requests.
	batchPause = 250 * time.Millisecond
)

var (
	// ErrReconnectRequired means the refresh token is dead and the user
	// must re-link the provider account.
	ErrReconnectRequired = errors.New("reconnect required")
	// ErrRateLimited means the provider asked us to back off.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotAuthenticated is returned when no token pair is set.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is a non-2xx response with its status preserved.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API status %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

// Client provides access to the streaming provider API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          zerolog.Logger

	mu    sync.Mutex
	token Token

	refreshCache *status.Cache[Token]

	pauseMu   sync.Mutex
	lastBatch time.Time
}

// NewClient creates a provider client. baseURL has no trailing slash.
func NewClient(baseURL, clientID, clientSecret string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: requestTimeout},
		log:          log.With().Str("component", "provider").Logger(),
		refreshCache: status.New[Token](),
	}
}

// get performs an authenticated GET and decodes the JSON response into out.
// A 401 triggers one deduplicated token refresh, then a single retry.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.do(ctx, http.MethodGet, path, nil, out); err == nil {
		return nil
	} else if !isUnauthorized(err) {
		return err
	}

	if _, err := c.RefreshAccessToken(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// send performs an authenticated request with a JSON body.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	if err := c.do(ctx, method, path, body, out); err == nil {
		return nil
	} else if !isUnauthorized(err) {
		return err
	}

	if _, err := c.RefreshAccessToken(ctx); err != nil {
		return err
	}
	return c.do(ctx, method, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token := c.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// waitForBatchPacing spaces catalog batch requests out so id-list sweeps
// do not trip the provider's rate limits.
func (c *Client) waitForBatchPacing(ctx context.Context) error {
	c.pauseMu.Lock()
	elapsed := time.Since(c.lastBatch)
	wait := time.Duration(0)
	if elapsed < batchPause {
		wait = batchPause - elapsed
	}
	c.lastBatch = time.Now().Add(wait)
	c.pauseMu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
