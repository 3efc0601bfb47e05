// Package confirm is the two-step gate every destructive action passes through.
package confirm

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

// Titles and messages that are not derived from an entity name.
const (
	UpdateTitle   = "Delete Update"
	UpdateMessage = "Are you sure you want to delete this update? This action cannot be undone."
)

// DeleteTitle is the modal title for deleting an entity of the given kind.
func DeleteTitle(singular string) string {
	return "Delete " + singular
}

// State is where the gate is in its cycle.
type State int

const (
	Idle State = iota
	Pending
	Busy
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Busy:
		return "busy"
	default:
		return "idle"
	}
}

// Request is what the modal shows and what runs on confirm. Key identifies the
// target so the outcome can be routed back to whoever asked.
type Request struct {
	Key       string
	Title     string
	Message   string
	OnConfirm func(ctx context.Context) error
}

// DoneMsg reports that the confirmed callback has returned.
type DoneMsg struct {
	Key   string
	Title string
	Err   error
}

// Gate holds at most one pending request.
type Gate struct {
	state  State
	req    Request
	logger *slog.Logger
}

// New returns an idle gate. Callback failures are logged to logger.
func New(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger}
}

// State reports the current state.
func (g *Gate) State() State { return g.state }

// Open asks for confirmation. A second request while one is open is ignored.
func (g *Gate) Open(req Request) bool {
	if g.state != Idle {
		return false
	}
	g.req = req
	g.state = Pending
	return true
}

// Pending returns the request the modal should show.
func (g *Gate) Pending() (Request, bool) {
	if g.state == Idle {
		return Request{}, false
	}
	return g.req, true
}

// Busy reports whether the confirmed callback is still running.
func (g *Gate) Busy() bool { return g.state == Busy }

// Cancel closes a pending request without running it.
func (g *Gate) Cancel() {
	if g.state == Pending {
		g.reset()
	}
}

// Confirm starts the captured callback. The returned command yields a DoneMsg
// which must be passed back to Done.
func (g *Gate) Confirm(ctx context.Context) tea.Cmd {
	if g.state != Pending {
		return nil
	}
	g.state = Busy
	req := g.req
	return func() tea.Msg {
		if req.OnConfirm == nil {
			return DoneMsg{Key: req.Key, Title: req.Title}
		}
		return DoneMsg{Key: req.Key, Title: req.Title, Err: req.OnConfirm(ctx)}
	}
}

// Done returns the gate to idle whatever the outcome. Errors are logged only.
func (g *Gate) Done(msg DoneMsg) {
	if msg.Err != nil {
		g.logger.Error("confirmed action failed", "action", msg.Title, "target", msg.Key, "error", msg.Err)
	}
	g.reset()
}

func (g *Gate) reset() {
	g.state = Idle
	g.req = Request{}
}
