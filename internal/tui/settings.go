package tui

import (
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/resource"
	"github.com/splax/cornerstone/pkg/api/client"
)

type settingsForm int

const (
	settingsNone settingsForm = iota
	settingsName
	settingsAvatar
	settingsPassword
)

type profileMsg struct {
	profile domain.Profile
	err     error
}

type passwordChangedMsg struct {
	err error
}

// settingsScreen edits the profile, avatar and password, and signs out.
type settingsScreen struct {
	app     *App
	profile domain.Profile
	err     error
	editing settingsForm
	form    *form
}

func newSettingsScreen(app *App) *settingsScreen {
	return &settingsScreen{app: app}
}

func (s *settingsScreen) Init() tea.Cmd {
	api, ctx := s.app.api, s.app.ctx
	return func() tea.Msg {
		p, err := api.Profile(ctx)
		return profileMsg{profile: p, err: err}
	}
}

func (s *settingsScreen) Capturing() bool { return s.form != nil }

func (s *settingsScreen) open(which settingsForm) {
	s.editing = which
	switch which {
	case settingsName:
		s.form = newForm("Edit Name", []resource.Field{{Key: "full_name", Label: "Full name"}},
			resource.Values{"full_name": s.profile.FullName}, nil)
	case settingsAvatar:
		s.form = newForm("Upload Avatar", []resource.Field{{Key: "path", Label: "Image file", Required: true}},
			resource.Values{}, nil)
	case settingsPassword:
		s.form = newForm("Change Password", []resource.Field{
			{Key: "password", Label: "New password", Required: true},
			{Key: "confirm", Label: "Confirm password", Required: true},
		}, resource.Values{}, nil)
		s.form.mask("password")
		s.form.mask("confirm")
	}
}

func (s *settingsScreen) submit() tea.Cmd {
	v := s.form.Values()
	api, ctx := s.app.api, s.app.ctx
	switch s.editing {
	case settingsName:
		in := client.ProfileInput{FullName: v.Get("full_name")}
		s.form.Busy = true
		return func() tea.Msg {
			p, err := api.UpdateProfile(ctx, in)
			return profileMsg{profile: p, err: err}
		}
	case settingsAvatar:
		path := v.Get("path")
		if path == "" {
			s.form.Err = "Choose an image file"
			return nil
		}
		fullName := s.profile.FullName
		s.form.Busy = true
		return func() tea.Msg {
			f, err := os.Open(path)
			if err != nil {
				return profileMsg{err: err}
			}
			defer f.Close()
			url, err := api.UploadAvatar(ctx, filepath.Base(path), f)
			if err != nil {
				return profileMsg{err: err}
			}
			p, err := api.UpdateProfile(ctx, client.ProfileInput{FullName: fullName, AvatarURL: &url})
			return profileMsg{profile: p, err: err}
		}
	case settingsPassword:
		password, confirm := v["password"], v["confirm"]
		if password == "" {
			s.form.Err = "Enter a new password"
			return nil
		}
		if password != confirm {
			s.form.Err = "Passwords do not match"
			return nil
		}
		s.form.Busy = true
		return func() tea.Msg {
			return passwordChangedMsg{err: api.UpdatePassword(ctx, password, confirm)}
		}
	}
	return nil
}

func (s *settingsScreen) signOut() tea.Cmd {
	api, ctx, logger := s.app.api, s.app.ctx, s.app.logger
	return func() tea.Msg {
		if err := api.Logout(ctx); err != nil {
			logger.Warn("sign out", "error", err)
		}
		return signedOutMsg{}
	}
}

func (s *settingsScreen) finish(err error) tea.Cmd {
	if s.form == nil {
		return nil
	}
	s.form.Busy = false
	if err != nil {
		s.form.Err = err.Error()
		return nil
	}
	s.form = nil
	s.editing = settingsNone
	return flash("Settings saved")
}

func (s *settingsScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case profileMsg:
		if msg.err == nil {
			s.profile = msg.profile
			s.err = nil
		} else if s.form == nil {
			s.err = msg.err
		}
		return s.finish(msg.err)
	case passwordChangedMsg:
		return s.finish(msg.err)
	case tea.KeyMsg:
		if s.form != nil {
			if s.form.Busy {
				return nil
			}
			result, cmd := s.form.Update(msg)
			switch result {
			case formCancel:
				s.form = nil
				s.editing = settingsNone
			case formSubmit:
				return s.submit()
			}
			return cmd
		}
		switch msg.String() {
		case "e":
			s.open(settingsName)
		case "u":
			s.open(settingsAvatar)
		case "p":
			s.open(settingsPassword)
		case "o":
			return s.signOut()
		}
		return nil
	}
	if s.form != nil {
		_, cmd := s.form.Update(msg)
		return cmd
	}
	return nil
}

func (s *settingsScreen) View(width, height int) string {
	st := s.app.styles
	if s.form != nil {
		return s.form.View(st, min(width, 80))
	}
	var b strings.Builder
	b.WriteString(st.Title.Render("Settings") + "\n\n")
	if s.err != nil {
		b.WriteString(st.Error.Render("Could not load your profile: "+s.err.Error()) + "\n")
	}
	b.WriteString(s.app.field("Name", s.profile.FullName))
	b.WriteString(s.app.field("Email", s.profile.Email))
	b.WriteString(s.app.field("Avatar", s.profile.AvatarURL))
	team := s.app.team.Name
	if s.app.teamErr != nil {
		team = st.Error.Render(s.app.teamErr.Error())
	}
	b.WriteString(s.app.field("Team", team))
	b.WriteString(st.Help.Render("e edit name • u upload avatar • p change password • o sign out"))
	return b.String()
}
