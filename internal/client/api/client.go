// Package api is the single authenticated HTTP client for the Eraiiz
// backend. Every call site goes through Client, so the refresh-on-401
// logic exists in exactly one place.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"eraiiz/internal/shared/models"
)

// DefaultTimeout bounds every request, refresh calls included.
const DefaultTimeout = 30 * time.Second

var (
	// ErrAuthMissing means no credentials are stored; no network call is made.
	ErrAuthMissing = errors.New("not authenticated")
	// ErrAuthExpired means the access token was rejected and refresh failed
	// (or the replayed request was rejected again). The store is cleared.
	ErrAuthExpired = errors.New("session expired")
)

// CredentialSource is the session store surface the client depends on.
type CredentialSource interface {
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	UpdateTokens(models.TokenPair) error
	Clear() error
}

// Client talks to the Eraiiz REST API with bearer authentication.
type Client struct {
	base     string
	http     *http.Client
	creds    CredentialSource
	refresh  singleflight.Group
	onLogout func()
	logger   *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport (tests).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithOnLogout registers a hook fired whenever the client forces a logout.
func WithOnLogout(fn func()) Option { return func(c *Client) { c.onLogout = fn } }

// WithLogger sets the logger used for degraded-path messages.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

func New(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: DefaultTimeout},
		creds:  creds,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base.
func (c *Client) BaseURL() string { return c.base }

// APIError carries a server error body alongside the HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// IsTimeout reports whether err is a client-side request timeout. Timeouts
// are surfaced as retryable errors and never retried automatically.
func IsTimeout(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

// do performs an unauthenticated request (login, register, refresh).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// doAuthed performs a bearer-authenticated request, transparently
// recovering from an expired access token exactly once. A second 401
// after a successful refresh is fatal and forces a logout.
func (c *Client) doAuthed(ctx context.Context, method, path string, body, out any) error {
	token, ok := c.creds.AccessToken()
	if !ok {
		return ErrAuthMissing
	}
	resp, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return decode(resp, out)
	}
	drain(resp)

	token, err = c.refreshTokens(token)
	if err != nil {
		c.forceLogout()
		return fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}
	resp, err = c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.forceLogout()
		return ErrAuthExpired
	}
	return decode(resp, out)
}

// Refresh forces a token refresh outside the 401 path (session monitor).
func (c *Client) Refresh(ctx context.Context) error {
	token, _ := c.creds.AccessToken()
	if _, err := c.refreshTokens(token); err != nil {
		c.forceLogout()
		return fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}
	return nil
}

// refreshTokens exchanges the stored refresh token for a new pair.
// Concurrent callers share a single in-flight refresh; a caller whose 401
// arrives after another caller already rotated the tokens reuses the new
// pair instead of issuing a redundant refresh call. The refresh request
// runs on its own context: the shared result must not fail for every
// waiter just because the initiating caller was cancelled mid-flight.
func (c *Client) refreshTokens(stale string) (string, error) {
	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		if cur, ok := c.creds.AccessToken(); ok && cur != stale {
			return cur, nil
		}
		rt, ok := c.creds.RefreshToken()
		if !ok {
			return nil, ErrAuthMissing
		}
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
		var pair models.TokenPair
		req := map[string]string{"refreshToken": rt}
		if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", req, &pair); err != nil {
			return nil, err
		}
		if pair.AccessToken == "" {
			return nil, errors.New("empty access token on refresh")
		}
		if err := c.creds.UpdateTokens(pair); err != nil {
			return nil, err
		}
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) forceLogout() {
	if err := c.creds.Clear(); err != nil {
		c.logger.Printf("clearing session: %v", err)
	}
	if c.onLogout != nil {
		c.onLogout()
	}
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
