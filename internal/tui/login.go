package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/splax/cornerstone/internal/resource"
)

// loginScreen is shown while no session is active.
type loginScreen struct {
	app    *App
	signup bool
	form   *form
}

func newLoginScreen(app *App) *loginScreen {
	l := &loginScreen{app: app}
	l.reset()
	return l
}

func (l *loginScreen) reset() {
	fields := []resource.Field{
		{Key: "email", Label: "Email", Required: true},
		{Key: "password", Label: "Password", Required: true},
	}
	title := "Sign in"
	if l.signup {
		title = "Create account"
		fields = append(fields, resource.Field{Key: "full_name", Label: "Full name"})
	}
	l.form = newForm(title, fields, resource.Values{}, nil)
	l.form.mask("password")
}

func (l *loginScreen) failed(err error) {
	l.form.Busy = false
	l.form.Err = err.Error()
}

func (l *loginScreen) submit() tea.Cmd {
	v := l.form.Values()
	if v.Get("email") == "" || v.Get("password") == "" {
		l.form.Err = "Email and password are required"
		return nil
	}
	l.form.Err = ""
	l.form.Busy = true
	api, ctx, signup := l.app.api, l.app.ctx, l.signup
	email, password, name := v.Get("email"), v.Get("password"), v.Get("full_name")
	return func() tea.Msg {
		var err error
		if signup {
			_, err = api.Signup(ctx, email, password, name)
		} else {
			_, err = api.Login(ctx, email, password)
		}
		return authDoneMsg{err: err}
	}
}

func (l *loginScreen) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		if l.form.Busy {
			return nil
		}
		if k.Type == tea.KeyCtrlT {
			l.signup = !l.signup
			l.reset()
			return nil
		}
		result, cmd := l.form.Update(k)
		switch result {
		case formCancel:
			return tea.Quit
		case formSubmit:
			return l.submit()
		}
		return cmd
	}
	_, cmd := l.form.Update(msg)
	return cmd
}

func (l *loginScreen) View(width, height int) string {
	st := l.app.styles
	var b strings.Builder
	b.WriteString(st.Title.Render("Welcome to Cornerstone CRM") + "\n")
	b.WriteString(st.Muted.Render("Sign in to manage your organisations, contacts and tasks.") + "\n\n")
	b.WriteString(l.form.View(st, min(width, 60)))
	if l.form.Busy {
		b.WriteString("\n" + st.Muted.Render(l.app.spinner.View()+" Signing in…"))
	}
	toggle := "ctrl+t create an account instead"
	if l.signup {
		toggle = "ctrl+t sign in to an existing account"
	}
	b.WriteString("\n" + st.Help.Render(toggle+" • esc quit"))
	return lipgloss.Place(max(width, 1), max(height, 1), lipgloss.Center, lipgloss.Center, st.Modal.Render(b.String()))
}
