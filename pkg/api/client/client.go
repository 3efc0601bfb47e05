package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client provides typed access to the CRM API for the terminal client and admin CLI.
// It holds the signed-in session and the selected team, and attaches both to requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu      sync.RWMutex
	session Session
	teamID  string
}

// Session is the token pair the client authenticates with.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
}

// Valid reports whether an access token is present.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithDialer overrides the websocket dialer used for session events.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

const defaultBaseURL = "http://localhost:4000"

// New builds a client for the API at base. A bare host:port is treated as http.
func New(base string, opts ...Option) (*Client, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid api base url: missing host in %q", base)
	}
	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetSession replaces the tokens used for authenticated calls.
func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Session returns the current tokens.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// ClearSession forgets the tokens and the selected team.
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.session = Session{}
	c.teamID = ""
	c.mu.Unlock()
}

// SetTeam selects the team sent in the X-Team-ID header. Empty lets the server decide.
func (c *Client) SetTeam(teamID string) {
	c.mu.Lock()
	c.teamID = strings.TrimSpace(teamID)
	c.mu.Unlock()
}

// TeamID returns the selected team.
func (c *Client) TeamID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.teamID
}

// APIError is a non-2xx answer from the API. Message is the server's
// {"error": ...} text when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cornerstone api: %d %s", e.Status, strings.ToLower(http.StatusText(e.Status)))
	}
	return e.Message
}

func statusOf(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

func IsNotFound(err error) bool { return statusOf(err) == http.StatusNotFound }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	c.mu.RLock()
	token, team := strings.TrimSpace(c.session.AccessToken), c.teamID
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if team != "" {
		req.Header.Set("X-Team-ID", team)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends body as JSON and decodes the answer into v. v may be nil, or a
// *[]byte to receive the raw body.
func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, v)
}

const maxErrorBody = 4 << 10

func (c *Client) send(req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(io.LimitReader(resp.Body, maxErrorBody))}
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	switch out := v.(type) {
	case *[]byte:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s: %w", req.URL.Path, err)
		}
		*out = data
	default:
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("decode %s: %w", req.URL.Path, err)
		}
	}
	return nil
}

// extractError pulls the message out of an error body, falling back to the
// raw text for non-JSON answers such as proxy pages.
func extractError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		return strings.TrimSpace(payload.Error)
	}
	return strings.TrimSpace(string(data))
}
