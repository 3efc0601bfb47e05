package client

import (
	"context"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/splax/cornerstone/internal/domain"
)

// AuthResponse captures the token payload emitted by the API.
type AuthResponse struct {
	User         *domain.User `json:"user,omitempty"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	SessionID    string       `json:"session_id"`
}

func (r AuthResponse) session() Session {
	return Session{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken, SessionID: r.SessionID}
}

// SessionInfo is the signed-in user with their session record.
type SessionInfo struct {
	User    domain.Profile `json:"user"`
	Session domain.Session `json:"session"`
	TeamID  string         `json:"team_id,omitempty"`
}

// Signup registers an account and keeps the returned session.
func (c *Client) Signup(ctx context.Context, email, password, fullName string) (AuthResponse, error) {
	body := map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, &resp); err != nil {
		return AuthResponse{}, err
	}
	c.SetSession(resp.session())
	return resp, nil
}

// Login exchanges credentials for a token pair and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return AuthResponse{}, err
	}
	c.SetSession(resp.session())
	return resp, nil
}

// Refresh swaps the stored refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) (Session, error) {
	body := map[string]string{"refresh_token": c.Session().RefreshToken}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &resp); err != nil {
		return Session{}, err
	}
	s := resp.session()
	c.SetSession(s)
	return s, nil
}

// Logout revokes the session server side. Local tokens are dropped even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.ClearSession()
	return err
}

// CurrentSession returns the signed-in user, or an error when there is no live session.
func (c *Client) CurrentSession(ctx context.Context) (SessionInfo, error) {
	var info SessionInfo
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &info); err != nil {
		return SessionInfo{}, err
	}
	return info, nil
}

// UpdatePassword changes the password; confirm must match.
func (c *Client) UpdatePassword(ctx context.Context, password, confirm string) error {
	body := map[string]string{"password": password, "confirm_password": confirm}
	return c.do(ctx, http.MethodPut, "/auth/password", body, nil)
}

// AccessExpired reports whether the stored access token is missing or past its expiry.
// The signature is not checked; the server does that.
func (c *Client) AccessExpired(now time.Time) bool {
	token := c.Session().AccessToken
	if token == "" {
		return true
	}
	var claims jwtlib.RegisteredClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	return claims.ExpiresAt == nil || !claims.ExpiresAt.After(now)
}
