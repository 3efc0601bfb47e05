package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/splax/cornerstone/internal/domain"
)

const (
	dashboardLimit = 5
	recentLimit    = 8
)

type recentLoadedMsg struct {
	views []domain.RecentView
	err   error
}

// dashboardScreen summarises what needs attention. Everything except recent
// views is derived from the collections the entity screens already hold.
type dashboardScreen struct {
	app    *App
	recent []domain.RecentView
	err    error
	cursor int
}

func newDashboardScreen(app *App) *dashboardScreen {
	return &dashboardScreen{app: app}
}

func (d *dashboardScreen) Init() tea.Cmd {
	api, ctx := d.app.api, d.app.ctx
	return func() tea.Msg {
		views, err := api.RecentViews(ctx, recentLimit)
		return recentLoadedMsg{views: views, err: err}
	}
}

func (d *dashboardScreen) Capturing() bool { return false }

// resolvable drops recent views whose record is gone or not loaded.
func (d *dashboardScreen) resolvable() []domain.RecentView {
	out := make([]domain.RecentView, 0, len(d.recent))
	for _, v := range d.recent {
		if d.name(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func (d *dashboardScreen) name(v domain.RecentView) string {
	a := d.app
	switch v.ItemType {
	case domain.KindOrganisation:
		if o, ok := a.orgs.items.Find(v.ItemID); ok {
			return o.Name
		}
	case domain.KindContact:
		if c, ok := a.contacts.items.Find(v.ItemID); ok {
			return c.Name
		}
	case domain.KindTask:
		if t, ok := a.tasks.items.Find(v.ItemID); ok {
			return t.Title
		}
	case domain.KindEvent:
		if e, ok := a.events.items.Find(v.ItemID); ok {
			return e.Title
		}
	}
	return ""
}

func (d *dashboardScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case recentLoadedMsg:
		d.err = msg.err
		if msg.err != nil {
			d.app.logger.Warn("load recent views", "error", msg.err)
			return nil
		}
		d.recent = msg.views
		d.cursor = 0
	case viewRecordedMsg:
		return d.Init()
	case tea.KeyMsg:
		keys := d.app.keys
		recent := d.resolvable()
		switch {
		case key.Matches(msg, keys.Up):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Down):
			if d.cursor < len(recent)-1 {
				d.cursor++
			}
		case key.Matches(msg, keys.Refresh):
			return d.Init()
		case key.Matches(msg, keys.Open):
			if d.cursor < len(recent) {
				v := recent[d.cursor]
				return func() tea.Msg { return navigateMsg{Kind: v.ItemType, ID: v.ItemID} }
			}
		}
	}
	return nil
}

func (d *dashboardScreen) View(width, height int) string {
	a := d.app
	st := a.styles
	now := a.now()

	parts := domain.PartitionTasks(a.tasks.items.Items(), now)
	overdue, upcoming := parts.Overdue, parts.Upcoming
	open := len(overdue) + len(upcoming)

	var b strings.Builder
	b.WriteString(st.Title.Render("Dashboard") + "\n")
	b.WriteString(st.Muted.Render(fmt.Sprintf("%d organisations · %d contacts · %d open tasks · %d events",
		a.orgs.items.Len(), a.contacts.items.Len(), open, a.events.items.Len())) + "\n")

	b.WriteString(st.Section.Render(fmt.Sprintf("Overdue tasks (%d)", len(overdue))) + "\n")
	if len(overdue) == 0 {
		b.WriteString(st.Muted.Render("  Nothing overdue") + "\n")
	}
	for _, t := range overdue {
		b.WriteString("  " + truncate(a.taskLine(t), width-2) + "\n")
	}

	b.WriteString(st.Section.Render("Upcoming tasks") + "\n")
	if len(upcoming) == 0 {
		b.WriteString(st.Muted.Render("  Nothing upcoming") + "\n")
	}
	for _, t := range upcoming[:min(len(upcoming), dashboardLimit)] {
		b.WriteString("  " + truncate(a.taskLine(t), width-2) + "\n")
	}

	b.WriteString(st.Section.Render("Upcoming events") + "\n")
	shown := 0
	for _, e := range a.calState.entries {
		if e.End.Before(now) {
			continue
		}
		b.WriteString("  " + truncate(st.Muted.Render(e.Start.Format("Mon 2 Jan 15:04"))+"  "+e.Title, width-2) + "\n")
		if shown++; shown == dashboardLimit {
			break
		}
	}
	if shown == 0 {
		b.WriteString(st.Muted.Render("  No upcoming events") + "\n")
	}

	left := b.String()
	right := d.renderRecent(min(width/3, 40))
	if width < 90 {
		return left + "\n" + right
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(width-42).Render(left), "  ", right)
}

func (d *dashboardScreen) renderRecent(width int) string {
	st := d.app.styles
	var b strings.Builder
	b.WriteString(st.Section.Render("Recently viewed") + "\n")
	recent := d.resolvable()
	switch {
	case d.err != nil:
		b.WriteString(st.Error.Render("Could not load recent views") + "\n")
	case len(recent) == 0:
		b.WriteString(st.Muted.Render("Nothing viewed yet") + "\n")
	}
	for i, v := range recent {
		line := truncate(kindLabel(v.ItemType)+"  "+d.name(v), width-2)
		if i == d.cursor {
			b.WriteString(st.RowSelected.Render(line))
		} else {
			b.WriteString(st.Row.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(st.helpLine(d.app.keys.Open, d.app.keys.Refresh))
	return b.String()
}
