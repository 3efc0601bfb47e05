package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/splax/cornerstone/internal/calendar"
	"github.com/splax/cornerstone/internal/confirm"
	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/resource"
	"github.com/splax/cornerstone/pkg/api/client"
)

type (
	organisationScreen = entityScreen[domain.Organisation, client.OrganisationInput]
	contactScreen      = entityScreen[domain.Contact, client.ContactInput]
	taskScreen         = entityScreen[domain.Task, client.TaskInput]
	eventScreen        = entityScreen[domain.CalendarEvent, client.EventInput]
)

func (a *App) field(label, value string) string {
	if strings.TrimSpace(value) == "" {
		value = a.styles.Muted.Render("—")
	}
	return a.styles.Label.Render(label+": ") + value + "\n"
}

func refName(r *domain.Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (a *App) date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(a.loc).Format("2 Jan 2006")
}

func (a *App) newOrganisationScreen() *organisationScreen {
	store := resource.NewStore(resource.Organisations(), resource.Remote[domain.Organisation, client.OrganisationInput](a.api.Organisations()))
	s := newEntityScreen(a, store,
		func(o domain.Organisation, width int) string {
			line := o.Name
			if o.Website != "" {
				line += "  " + a.styles.Muted.Render(o.Website)
			}
			return line
		},
		func(o domain.Organisation, width int) string {
			var b strings.Builder
			b.WriteString(a.field("Website", o.Website))
			b.WriteString(a.field("Description", wrap(o.Description, width)))
			b.WriteString(a.field("Current status", wrap(o.CurrentStatus, width)))

			b.WriteString(a.styles.Section.Render("Contacts") + "\n")
			n := 0
			for _, c := range a.contacts.items.Items() {
				if c.OrganisationID != nil && *c.OrganisationID == o.ID {
					b.WriteString("  " + c.Name + a.styles.Muted.Render(" "+c.Role) + "\n")
					n++
				}
			}
			if n == 0 {
				b.WriteString(a.styles.Muted.Render("  No contacts") + "\n")
			}
			b.WriteString(a.styles.Section.Render("Tasks") + "\n")
			n = 0
			for _, t := range a.tasks.items.Items() {
				if t.OrganisationID != nil && *t.OrganisationID == o.ID {
					b.WriteString("  " + a.taskLine(t) + "\n")
					n++
				}
			}
			if n == 0 {
				b.WriteString(a.styles.Muted.Render("  No tasks") + "\n")
			}
			return b.String()
		},
	)
	s.timeline = newTimeline(a, domain.KindOrganisation)
	s.footer = []key.Binding{a.keys.Update, a.keys.DeleteUpdate}
	return s
}

func (a *App) newContactScreen() *contactScreen {
	store := resource.NewStore(resource.Contacts(), resource.Remote[domain.Contact, client.ContactInput](a.api.Contacts()))
	s := newEntityScreen(a, store,
		func(c domain.Contact, width int) string {
			var meta []string
			if c.Role != "" {
				meta = append(meta, c.Role)
			}
			if name := c.OrganisationName(); name != "" {
				meta = append(meta, name)
			}
			line := c.Name
			if len(meta) > 0 {
				line += "  " + a.styles.Muted.Render(strings.Join(meta, " · "))
			}
			return line
		},
		func(c domain.Contact, width int) string {
			var b strings.Builder
			b.WriteString(a.field("Email", c.Email))
			b.WriteString(a.field("Phone", c.Phone))
			b.WriteString(a.field("Role", c.Role))
			b.WriteString(a.field("Organisation", c.OrganisationName()))
			b.WriteString(a.field("Current status", wrap(c.CurrentStatus, width)))

			b.WriteString(a.styles.Section.Render("Tasks") + "\n")
			n := 0
			for _, t := range a.tasks.items.Items() {
				if t.ContactID != nil && *t.ContactID == c.ID {
					b.WriteString("  " + a.taskLine(t) + "\n")
					n++
				}
			}
			if n == 0 {
				b.WriteString(a.styles.Muted.Render("  No tasks") + "\n")
			}
			return b.String()
		},
	)
	s.timeline = newTimeline(a, domain.KindContact)
	s.footer = []key.Binding{a.keys.Update}
	return s
}

func (a *App) statusBadge(status domain.TaskStatus) string {
	switch status {
	case domain.TaskCompleted:
		return a.styles.Success.Render("[" + status.Label() + "]")
	case domain.TaskInProgress:
		return a.styles.Warning.Render("[" + status.Label() + "]")
	default:
		return a.styles.Muted.Render("[" + status.Label() + "]")
	}
}

func (a *App) taskLine(t domain.Task) string {
	line := a.statusBadge(t.Status) + " " + t.Title
	if t.DueDate != nil {
		due := "due " + a.date(t.DueDate)
		if t.Overdue(a.now()) {
			line += "  " + a.styles.Error.Render(due)
		} else {
			line += "  " + a.styles.Muted.Render(due)
		}
	}
	return line
}

const linkKeyPrefix = "link:"

func linkFormFields() []resource.Field {
	return []resource.Field{
		{Key: "url", Label: "URL", Required: true},
		{Key: "title", Label: "Title"},
	}
}

func (a *App) newTaskScreen() *taskScreen {
	store := resource.NewStore(resource.Tasks(a.loc), resource.Remote[domain.Task, client.TaskInput](a.api.Tasks()))
	linkCursor := 0
	var s *taskScreen
	s = newEntityScreen(a, store,
		func(t domain.Task, width int) string {
			line := a.taskLine(t)
			if name := refName(t.Organisation); name != "" {
				line += "  " + a.styles.Muted.Render(name)
			}
			return line
		},
		func(t domain.Task, width int) string {
			var b strings.Builder
			b.WriteString(a.field("Status", a.statusBadge(t.Status)))
			b.WriteString(a.field("Due", a.date(t.DueDate)))
			b.WriteString(a.field("Organisation", refName(t.Organisation)))
			b.WriteString(a.field("Contact", refName(t.Contact)))
			b.WriteString(a.field("Assignee", refName(t.Assignee)))
			b.WriteString(a.field("Description", wrap(t.Description, width)))
			b.WriteString(a.styles.Section.Render("Links") + "\n")
			if len(t.Links) == 0 {
				b.WriteString(a.styles.Muted.Render("  No links") + "\n")
			}
			for i, l := range t.Links {
				marker := "  "
				if i == linkCursor {
					marker = "▸ "
				}
				b.WriteString(marker + a.styles.Link.Render(l.Label()))
				if l.Title != "" {
					b.WriteString(a.styles.Muted.Render(" " + l.URL))
				}
				b.WriteString("\n")
			}
			b.WriteString(a.styles.Help.Render("t " + t.Status.ToggleLabel()))
			return b.String()
		},
	)
	s.sections = func(tasks []domain.Task) []section[domain.Task] {
		parts := domain.PartitionTasks(tasks, a.now())
		return []section[domain.Task]{
			{title: "Overdue", items: parts.Overdue, empty: "Nothing overdue"},
			{title: "Upcoming", items: parts.Upcoming, empty: "Nothing upcoming. Press n to add a task."},
			{title: "Completed", items: parts.Completed, empty: "Nothing completed yet"},
		}
	}
	toggle := func(t domain.Task) tea.Cmd {
		api, ctx := a.api, a.ctx
		return func() tea.Msg {
			updated, err := api.ToggleTask(ctx, t.ID)
			return replacedMsg[domain.Task]{item: updated, err: err}
		}
	}
	s.listKeys = func(msg tea.KeyMsg) (tea.Cmd, bool) {
		if !key.Matches(msg, a.keys.Toggle) {
			return nil, false
		}
		if t, ok := s.selected(); ok {
			return toggle(t), true
		}
		return nil, true
	}
	s.panelKeys = func(msg tea.KeyMsg, t domain.Task) (tea.Cmd, bool) {
		switch {
		case key.Matches(msg, a.keys.Toggle):
			return toggle(t), true
		case key.Matches(msg, a.keys.Link):
			s.aux = newForm("Add Link", linkFormFields(), resource.Values{}, nil)
			s.auxSubmit = func(v resource.Values) tea.Cmd {
				if v.Get("url") == "" {
					return func() tea.Msg {
						return replacedMsg[domain.Task]{item: t, err: errors.New("URL is required")}
					}
				}
				api, ctx := a.api, a.ctx
				in := client.LinkInput{URL: v.Get("url"), Title: v.Get("title")}
				return func() tea.Msg {
					link, err := api.AddTaskLink(ctx, t.ID, in)
					if err != nil {
						return replacedMsg[domain.Task]{item: t, err: err}
					}
					updated := t
					updated.Links = append(append([]domain.TaskLink(nil), t.Links...), link)
					return replacedMsg[domain.Task]{item: updated}
				}
			}
			return nil, true
		case key.Matches(msg, a.keys.Next):
			if linkCursor < len(t.Links)-1 {
				linkCursor++
			}
			return nil, true
		case key.Matches(msg, a.keys.Prev):
			if linkCursor > 0 {
				linkCursor--
			}
			return nil, true
		case key.Matches(msg, a.keys.DeleteLink):
			if linkCursor >= len(t.Links) {
				return nil, true
			}
			link := t.Links[linkCursor]
			api := a.api
			a.confirm.Open(confirm.Request{
				Key:     linkKeyPrefix + t.ID + ":" + link.ID,
				Title:   "Delete Link",
				Message: fmt.Sprintf("Are you sure you want to delete \"%s\"? This action cannot be undone.", link.Label()),
				OnConfirm: func(ctx context.Context) error {
					return api.DeleteTaskLink(ctx, link.ID)
				},
			})
			return nil, true
		}
		return nil, false
	}
	s.onDone = func(msg confirm.DoneMsg) {
		rest, ok := strings.CutPrefix(msg.Key, linkKeyPrefix)
		if !ok || msg.Err != nil {
			return
		}
		taskID, linkID, _ := strings.Cut(rest, ":")
		t, found := s.items.Find(taskID)
		if !found {
			return
		}
		links := make([]domain.TaskLink, 0, len(t.Links))
		for _, l := range t.Links {
			if l.ID != linkID {
				links = append(links, l)
			}
		}
		t.Links = links
		s.items.ReplaceByID(t)
		if linkCursor >= len(links) && linkCursor > 0 {
			linkCursor--
		}
	}
	s.footer = []key.Binding{a.keys.Toggle, a.keys.Link, a.keys.DeleteLink}
	return s
}

// calendarState is the layout and anchor of the calendar screen plus its mapped entries.
type calendarState struct {
	view    calendar.View
	anchor  time.Time
	entries []calendar.Entry
	byID    map[string]calendar.Entry
}

func (c *calendarState) setEntries(entries []calendar.Entry) {
	c.entries = entries
	c.byID = make(map[string]calendar.Entry, len(entries))
	for _, e := range entries {
		c.byID[e.Event.ID] = e
	}
}

// entry returns the mapped form of ev from the last fetch or change.
func (c *calendarState) entry(ev domain.CalendarEvent) calendar.Entry {
	if e, ok := c.byID[ev.ID]; ok {
		return e
	}
	return calendar.Entry{Event: ev, Title: ev.Title, Start: ev.StartTime, End: ev.EndTime}
}

func (a *App) newEventScreen() (*eventScreen, *calendarState) {
	state := &calendarState{view: calendar.Month, anchor: a.now().In(a.loc)}
	store := resource.NewStore(resource.Events(a.loc), resource.Remote[domain.CalendarEvent, client.EventInput](a.api.Events()))
	s := newEntityScreen(a, store,
		func(ev domain.CalendarEvent, width int) string {
			e := state.entry(ev)
			return a.styles.Muted.Render(e.Start.Format("15:04")+"–"+e.End.Format("15:04")) + "  " + e.Title
		},
		func(ev domain.CalendarEvent, width int) string {
			e := state.entry(ev)
			ev = e.Event
			var b strings.Builder
			b.WriteString(a.field("Starts", e.Start.Format("Mon 2 Jan 2006 15:04")))
			b.WriteString(a.field("Ends", e.End.Format("Mon 2 Jan 2006 15:04")))
			b.WriteString(a.field("Organisation", refName(ev.Organisation)))
			b.WriteString(a.field("Contact", refName(ev.Contact)))
			b.WriteString(a.field("Task", refName(ev.Task)))
			b.WriteString(a.field("Created by", ev.CreatorName))
			b.WriteString(a.field("Description", wrap(ev.Description, width)))
			return b.String()
		},
	)
	s.changed = func(events []domain.CalendarEvent) {
		state.setEntries(calendar.MapAll(events, a.loc))
	}
	s.sections = func([]domain.CalendarEvent) []section[domain.CalendarEvent] {
		from, to := calendar.Range(state.view, state.anchor)
		visible := calendar.InRange(state.entries, from, to)
		var out []section[domain.CalendarEvent]
		for _, day := range calendar.Days(from, to) {
			entries := calendar.OnDay(visible, day)
			if len(entries) == 0 {
				continue
			}
			events := make([]domain.CalendarEvent, len(entries))
			for i, e := range entries {
				events[i] = e.Event
			}
			out = append(out, section[domain.CalendarEvent]{title: day.Format("Mon 2 Jan"), items: events})
		}
		if len(out) == 0 {
			out = append(out, section[domain.CalendarEvent]{empty: "No events in this range. Press n to add one."})
		}
		return out
	}
	s.header = func() string {
		return calendar.Title(state.view, state.anchor) + " · " + state.view.String()
	}
	s.listKeys = func(msg tea.KeyMsg) (tea.Cmd, bool) {
		switch {
		case key.Matches(msg, a.keys.View):
			state.view = state.view.Next()
		case key.Matches(msg, a.keys.Next):
			state.anchor = calendar.Step(state.view, state.anchor, 1)
		case key.Matches(msg, a.keys.Prev):
			state.anchor = calendar.Step(state.view, state.anchor, -1)
		case msg.String() == ".":
			state.anchor = a.now().In(a.loc)
		default:
			return nil, false
		}
		s.cursor = 0
		return nil, true
	}
	s.canSave = func() string {
		if a.teamErr != nil {
			return "Could not determine your team, so events cannot be created or edited: " + a.teamErr.Error()
		}
		if a.team.ID == "" {
			return "Still looking up your team. Try again in a moment."
		}
		return ""
	}
	s.footer = []key.Binding{a.keys.View, a.keys.Prev, a.keys.Next}
	return s, state
}
