package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/splax/cornerstone/internal/confirm"
	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/resource"
	"github.com/splax/cornerstone/pkg/api/client"
)

const updateKeyPrefix = "update:"

type timelineLoadedMsg struct {
	parent   domain.Kind
	parentID string
	updates  []domain.Update
	err      error
}

type updateAddedMsg struct {
	parent   domain.Kind
	parentID string
	update   domain.Update
	err      error
}

// timeline is the update history inside an organisation or contact panel.
type timeline struct {
	app      *App
	parent   domain.Kind
	parentID string
	updates  []domain.Update
	loaded   bool
	err      error
	cursor   int
	form     *form
}

func newTimeline(app *App, parent domain.Kind) *timeline {
	return &timeline{app: app, parent: parent}
}

func (t *timeline) capturing() bool { return t.form != nil }

func (t *timeline) reset() {
	t.parentID = ""
	t.updates = nil
	t.loaded = false
	t.err = nil
	t.cursor = 0
	t.form = nil
}

func (t *timeline) load(parent domain.Kind, parentID string) tea.Cmd {
	t.reset()
	t.parentID = parentID
	api, ctx := t.app.api, t.app.ctx
	return func() tea.Msg {
		updates, err := api.Updates(ctx, parent, parentID)
		return timelineLoadedMsg{parent: parent, parentID: parentID, updates: updates, err: err}
	}
}

func (t *timeline) mine(parent domain.Kind, parentID string) bool {
	return parent == t.parent && parentID != "" && parentID == t.parentID
}

func updateFormFields() []resource.Field {
	return []resource.Field{
		{Key: "type", Label: "Type", Required: true, Kind: resource.FieldRef},
		{Key: "content", Label: "Content", Required: true, Kind: resource.FieldMultiline},
	}
}

func (t *timeline) openForm() {
	types := domain.UpdateTypesFor(t.parent)
	choices := func(resource.Field) []domain.Ref {
		refs := make([]domain.Ref, len(types))
		for i, typ := range types {
			refs[i] = domain.Ref{ID: string(typ), Name: typ.Label()}
		}
		return refs
	}
	t.form = newForm("Add Update", updateFormFields(), resource.Values{"type": string(domain.UpdateOther)}, choices)
}

func (t *timeline) submit() tea.Cmd {
	values := t.form.Values()
	if values.Get("content") == "" {
		t.form.Err = "Content is required"
		return nil
	}
	t.form.Err = ""
	t.form.Busy = true
	api, ctx, parent, parentID := t.app.api, t.app.ctx, t.parent, t.parentID
	in := client.UpdateInput{Type: domain.UpdateType(values.Get("type")), Content: values.Get("content")}
	return func() tea.Msg {
		update, err := api.AddUpdate(ctx, parent, parentID, in)
		return updateAddedMsg{parent: parent, parentID: parentID, update: update, err: err}
	}
}

func (t *timeline) requestDelete() {
	if !domain.UpdateDeletable(t.parent) || t.cursor >= len(t.updates) {
		return
	}
	id := t.updates[t.cursor].ID
	api := t.app.api
	t.app.confirm.Open(confirm.Request{
		Key:     updateKeyPrefix + id,
		Title:   confirm.UpdateTitle,
		Message: confirm.UpdateMessage,
		OnConfirm: func(ctx context.Context) error {
			return api.DeleteOrganisationUpdate(ctx, id)
		},
	})
}

func (t *timeline) done(msg confirm.DoneMsg) {
	id, ok := strings.CutPrefix(msg.Key, updateKeyPrefix)
	if !ok || msg.Err != nil {
		return
	}
	for i, u := range t.updates {
		if u.ID == id {
			t.updates = append(t.updates[:i], t.updates[i+1:]...)
			break
		}
	}
	if t.cursor >= len(t.updates) && t.cursor > 0 {
		t.cursor--
	}
}

func (t *timeline) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case timelineLoadedMsg:
		if !t.mine(msg.parent, msg.parentID) {
			return nil
		}
		t.loaded = true
		t.err = msg.err
		t.updates = msg.updates
		return nil

	case updateAddedMsg:
		if !t.mine(msg.parent, msg.parentID) || t.form == nil {
			return nil
		}
		t.form.Busy = false
		if msg.err != nil {
			t.form.Err = msg.err.Error()
			return nil
		}
		t.updates = append([]domain.Update{msg.update}, t.updates...)
		t.cursor = 0
		t.form = nil
		return nil

	case tea.KeyMsg:
		keys := t.app.keys
		if t.form != nil {
			result, cmd := t.form.Update(msg)
			switch result {
			case formCancel:
				t.form = nil
			case formSubmit:
				return t.submit()
			}
			return cmd
		}
		switch {
		case key.Matches(msg, keys.Update):
			t.openForm()
		case key.Matches(msg, keys.Up):
			if t.cursor > 0 {
				t.cursor--
			}
		case key.Matches(msg, keys.Down):
			if t.cursor < len(t.updates)-1 {
				t.cursor++
			}
		case key.Matches(msg, keys.DeleteUpdate):
			t.requestDelete()
		}
		return nil
	}
	if t.form != nil {
		_, cmd := t.form.Update(msg)
		return cmd
	}
	return nil
}

func (t *timeline) View(width int) string {
	st := t.app.styles
	var b strings.Builder
	b.WriteString(st.Section.Render("Updates") + "\n")
	if t.form != nil {
		b.WriteString(t.form.View(st, width))
		return b.String()
	}
	switch {
	case !t.loaded:
		b.WriteString(st.Muted.Render("Loading updates…"))
	case t.err != nil:
		b.WriteString(st.Error.Render("Could not load updates: " + t.err.Error()))
	case len(t.updates) == 0:
		b.WriteString(st.Muted.Render("No updates yet."))
	}
	for i, u := range t.updates {
		who := u.CreatorName
		if who == "" {
			who = "Unknown"
		}
		meta := u.Type.Label() + " · " + who + " · " + u.CreatedAt.In(t.app.loc).Format("2 Jan 2006 15:04")
		line := st.Muted.Render(meta) + "\n" + wrap(u.Content, width-2)
		if i == t.cursor {
			line = st.RowSelected.Render("▸") + " " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	hint := "u add update"
	if domain.UpdateDeletable(t.parent) && len(t.updates) > 0 {
		hint += " • x delete update"
	}
	b.WriteString(st.Help.Render(hint))
	return b.String()
}

// wrap folds text to width terminal cells on word boundaries.
func wrap(text string, width int) string {
	if width < 10 {
		width = 10
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line, cols := "", 0
		for _, word := range strings.Fields(para) {
			w := ansi.StringWidth(word)
			if line != "" && cols+1+w > width {
				out = append(out, line)
				line, cols = word, w
				continue
			}
			if line == "" {
				line, cols = word, w
			} else {
				line += " " + word
				cols += 1 + w
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
