package httpx

import (
	"net/http"
	"strings"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/service/auth"
	"github.com/splax/cornerstone/internal/ws"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type tokenResponse struct {
	User         *domain.User `json:"user,omitempty"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	SessionID    string       `json:"session_id"`
}

func newTokenResponse(user *domain.User, tokens auth.TokenPair) tokenResponse {
	return tokenResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    int64(tokens.ExpiresIn.Seconds()),
		SessionID:    tokens.SessionID,
	}
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, tokens, err := r.svc.Auth.Signup(req.Context(), payload.Email, payload.Password, payload.FullName)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTokenResponse(user, tokens))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload credentialsRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, tokens, err := r.svc.Auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(user, tokens))
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	tokens, err := r.svc.Auth.Refresh(req.Context(), payload.RefreshToken)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(nil, tokens))
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	if err := r.svc.Auth.Logout(req.Context(), info.Claims); err != nil {
		r.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	User    *domain.Profile `json:"user"`
	Session *domain.Session `json:"session"`
	TeamID  string          `json:"team_id,omitempty"`
}

func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	session, err := r.svc.Auth.Session(req.Context(), info.Claims)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	profile, err := r.svc.Profiles.Get(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: profile, Session: session, TeamID: info.TeamID})
}

func (r *Router) handlePassword(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPut && req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	info, _ := authInfoFromContext(req.Context())
	if err := r.svc.Auth.UpdatePassword(req.Context(), info.UserID, payload.Password, payload.ConfirmPassword); err != nil {
		r.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionEvents streams session transitions for the caller. Websocket
// upgrades are preferred; other clients get a server-sent event stream.
func (r *Router) handleSessionEvents(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.authenticate(w, req, true)
	if !ok {
		return
	}
	req = withAuthInfo(w, req, info)
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "session events unavailable")
		return
	}
	if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
		r.serveSessionWS(w, req, info.UserID)
		return
	}
	r.serveSessionSSE(w, req, info.UserID)
}

func (r *Router) serveSessionWS(w http.ResponseWriter, req *http.Request, userID string) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(userID, client)
	go func() {
		defer r.hub.Unregister(userID, client)
		client.Serve()
	}()
}

func (r *Router) serveSessionSSE(w http.ResponseWriter, req *http.Request, userID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(userID, client)
	defer func() {
		r.hub.Unregister(userID, client)
		client.Close()
	}()
	client.Serve(req.Context(), sseHeartbeat)
}
