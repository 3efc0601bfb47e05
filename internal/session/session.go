// Package session decides whether the terminal client shows the login screen or the
// CRM, and follows session changes pushed by the API.
package session

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/pkg/api/client"
)

// Status is the gate's view of the session.
type Status int

const (
	Loading Status = iota
	Authenticated
	Anonymous
)

func (s Status) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "loading"
	}
}

// Authenticator is the slice of the API client the gate needs.
type Authenticator interface {
	CurrentSession(ctx context.Context) (client.SessionInfo, error)
	SessionEvents(ctx context.Context) (<-chan domain.SessionEvent, error)
}

// Action is what the app must do after a pushed event.
type Action int

const (
	ActionNone Action = iota
	ActionSignOut
	ActionRecheck
)

// Messages delivered through the bubbletea loop.
type (
	ResolvedMsg struct {
		Info client.SessionInfo
		Err  error
	}
	SubscribedMsg struct {
		Events <-chan domain.SessionEvent
	}
	EventMsg struct {
		Event domain.SessionEvent
	}
	StreamClosedMsg struct{}
)

// Gate holds the resolved session and the live event subscription.
type Gate struct {
	auth   Authenticator
	logger *slog.Logger
	status Status
	info   client.SessionInfo
	cancel context.CancelFunc
}

// NewGate starts in Loading until Resolve is called.
func NewGate(auth Authenticator, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{auth: auth, logger: logger}
}

// Status reports the current state.
func (g *Gate) Status() Status { return g.status }

// Info is the signed-in user and session; zero unless Authenticated.
func (g *Gate) Info() client.SessionInfo { return g.info }

// Check asks the API for the current session.
func (g *Gate) Check(ctx context.Context) tea.Cmd {
	auth := g.auth
	return func() tea.Msg {
		info, err := auth.CurrentSession(ctx)
		return ResolvedMsg{Info: info, Err: err}
	}
}

// Resolve applies a Check result. Any failure means there is no session; nothing is retried.
func (g *Gate) Resolve(msg ResolvedMsg) Status {
	if msg.Err != nil {
		g.logger.Info("no active session", "error", msg.Err)
		g.status = Anonymous
		g.info = client.SessionInfo{}
		return g.status
	}
	g.status = Authenticated
	g.info = msg.Info
	return g.status
}

// Subscribe opens the event stream, replacing any previous subscription.
// Failure to subscribe is logged and leaves the session as is.
func (g *Gate) Subscribe(ctx context.Context) tea.Cmd {
	g.Unsubscribe()
	subCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	auth, logger := g.auth, g.logger
	return func() tea.Msg {
		events, err := auth.SessionEvents(subCtx)
		if err != nil {
			logger.Warn("session events unavailable", "error", err)
			return nil
		}
		return SubscribedMsg{Events: events}
	}
}

// Wait reads the next pushed event.
func Wait(events <-chan domain.SessionEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StreamClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Unsubscribe closes the event stream if one is open.
func (g *Gate) Unsubscribe() {
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Handle maps a pushed event to an action. Events for other users are ignored, and a
// sign-out only ends this client when it names this session or no session at all.
func (g *Gate) Handle(ev domain.SessionEvent) Action {
	if g.status != Authenticated || ev.UserID != g.info.User.ID {
		return ActionNone
	}
	switch ev.Type {
	case domain.SessionSignedOut:
		if ev.SessionID == "" || ev.SessionID == g.info.Session.ID {
			return ActionSignOut
		}
	case domain.SessionTokenRefreshed, domain.SessionUserUpdated:
		return ActionRecheck
	}
	return ActionNone
}

// SignOut drops the session and the subscription.
func (g *Gate) SignOut() {
	g.Unsubscribe()
	g.status = Anonymous
	g.info = client.SessionInfo{}
}
