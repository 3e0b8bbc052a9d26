package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// refreshDedupTTL is how long a freshly refreshed token satisfies other
// refresh requests. Concurrent 401 handlers collapse into a single refresh
// instead of each burning the (single-use) refresh token.
const refreshDedupTTL = 10 * time.Second

const refreshKey = "token-refresh"

// Token is the provider OAuth token pair.
type Token struct {
	Access    string
	Refresh   string
	ExpiresAt time.Time
}

// SetToken installs a token pair, typically restored from persisted state
// after the interactive link flow.
func (c *Client) SetToken(tok Token) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	c.refreshCache.Invalidate(refreshKey)
}

// ClearToken drops the token pair. Subsequent API calls fail with
// ErrNotAuthenticated until a new pair is set.
func (c *Client) ClearToken() {
	c.SetToken(Token{})
}

// AccessToken returns the current access token, empty when unauthenticated.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token.Access
}

// TokenExpiry returns when the current access token expires. Zero when no
// pair is installed or the provider did not report a lifetime.
func (c *Client) TokenExpiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token.ExpiresAt
}

// IsAuthenticated reports whether a token pair is installed.
func (c *Client) IsAuthenticated() bool {
	return c.AccessToken() != ""
}

// RefreshAccessToken exchanges the refresh token for a new pair. Concurrent
// callers share one exchange. A rejected refresh token clears the pair and
// returns ErrReconnectRequired: the account link is gone and only the user
// can restore it.
func (c *Client) RefreshAccessToken(ctx context.Context) (Token, error) {
	return c.refreshCache.GetOrCompute(ctx, refreshKey, refreshDedupTTL, c.exchangeRefreshToken)
}

func (c *Client) exchangeRefreshToken(ctx context.Context) (Token, error) {
	c.mu.Lock()
	refresh := c.token.Refresh
	c.mu.Unlock()
	if refresh == "" {
		return Token{}, ErrNotAuthenticated
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		c.ClearToken()
		c.log.Warn().Int("status", resp.StatusCode).Msg("refresh token rejected, account link lost")
		return Token{}, ErrReconnectRequired
	}
	if resp.StatusCode != http.StatusOK {
		return Token{}, &APIError{Status: resp.StatusCode, Body: "token refresh failed"}
	}

	var tr tokenResponse
	if err := decodeJSON(resp.Body, &tr); err != nil {
		return Token{}, err
	}

	tok := Token{
		Access:    tr.AccessToken,
		Refresh:   tr.RefreshToken,
		ExpiresAt: time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	// Providers may omit the refresh token when it is still valid.
	if tok.Refresh == "" {
		tok.Refresh = refresh
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	c.log.Debug().Time("expires_at", tok.ExpiresAt).Msg("access token refreshed")
	return tok, nil
}
