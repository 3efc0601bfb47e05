package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/splax/cornerstone/internal/confirm"
	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/resource"
)

// section is a titled group of rows. Screens without grouping use one untitled section.
type section[T any] struct {
	title string
	items []T
	empty string
}

// entityScreen is the list, detail panel and form cycle shared by organisations,
// contacts, tasks and calendar events.
type entityScreen[T any, In any] struct {
	app    *App
	store  resource.Store[T, In]
	items  *resource.Collection[T]
	cursor int
	open   string
	form   *form
	// editing is the id of the row under edit, "" while creating.
	editing string
	notice  string

	row      func(T, int) string
	detail   func(T, int) string
	sections func([]T) []section[T]
	header   func() string
	// listKeys and panelKeys handle screen-specific keys before the shared ones.
	listKeys  func(tea.KeyMsg) (tea.Cmd, bool)
	panelKeys func(tea.KeyMsg, T) (tea.Cmd, bool)
	changed   func([]T)
	// canSave returns a notice when neither create nor edit may proceed.
	canSave func() string
	onDone    func(confirm.DoneMsg)
	timeline  *timeline
	footer    []key.Binding

	// aux is a secondary form, such as adding a link, whose submit yields a replacedMsg.
	aux       *form
	auxSubmit func(resource.Values) tea.Cmd
}

func newEntityScreen[T any, In any](app *App, store resource.Store[T, In], row func(T, int) string, detail func(T, int) string) *entityScreen[T, In] {
	return &entityScreen[T, In]{
		app:    app,
		store:  store,
		items:  resource.NewCollection(store.Schema.ID),
		row:    row,
		detail: detail,
	}
}

func (s *entityScreen[T, In]) kind() domain.Kind { return s.store.Schema.Kind }

func (s *entityScreen[T, In]) deleteKey(id string) string {
	return string(s.kind()) + ":" + id
}

func (s *entityScreen[T, In]) Init() tea.Cmd {
	store, ctx := s.store, s.app.ctx
	return func() tea.Msg {
		items, err := store.Load(ctx)
		return loadedMsg[T]{items: items, err: err}
	}
}

func (s *entityScreen[T, In]) Capturing() bool {
	if s.form != nil || s.aux != nil {
		return true
	}
	return s.timeline != nil && s.open != "" && s.timeline.capturing()
}

func (s *entityScreen[T, In]) notifyChanged() {
	if s.changed != nil {
		s.changed(s.items.Items())
	}
}

func (s *entityScreen[T, In]) groups() []section[T] {
	if s.sections != nil {
		return s.sections(s.items.Items())
	}
	return []section[T]{{items: s.items.Items(), empty: "No " + strings.ToLower(s.store.Schema.Title) + " yet. Press n to add one."}}
}

// rows flattens the visible sections in display order.
func (s *entityScreen[T, In]) rows() []T {
	var out []T
	for _, g := range s.groups() {
		out = append(out, g.items...)
	}
	return out
}

func (s *entityScreen[T, In]) selected() (T, bool) {
	rows := s.rows()
	if s.cursor < 0 || s.cursor >= len(rows) {
		var zero T
		return zero, false
	}
	return rows[s.cursor], true
}

// follow moves the cursor to the row with id, wherever its section put it.
func (s *entityScreen[T, In]) follow(id string) {
	for i, row := range s.rows() {
		if s.store.Schema.ID(row) == id {
			s.cursor = i
			return
		}
	}
	s.clampCursor()
}

func (s *entityScreen[T, In]) clampCursor() {
	n := len(s.rows())
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// openPanel shows the detail panel for id and records the view.
func (s *entityScreen[T, In]) openPanel(id string) tea.Cmd {
	if _, ok := s.items.Find(id); !ok {
		return nil
	}
	s.open = id
	for i, row := range s.rows() {
		if s.store.Schema.ID(row) == id {
			s.cursor = i
			break
		}
	}
	cmds := []tea.Cmd{s.app.recordView(s.kind(), id)}
	if s.timeline != nil {
		cmds = append(cmds, s.timeline.load(s.kind(), id))
	}
	return tea.Batch(cmds...)
}

func (s *entityScreen[T, In]) closePanel() {
	s.open = ""
	if s.timeline != nil {
		s.timeline.reset()
	}
}

func (s *entityScreen[T, In]) blocked() bool {
	if s.canSave != nil {
		if notice := s.canSave(); notice != "" {
			s.notice = notice
			return true
		}
	}
	s.notice = ""
	return false
}

func (s *entityScreen[T, In]) openAdd() tea.Cmd {
	if s.blocked() {
		return nil
	}
	s.editing = ""
	s.form = newForm("Add "+s.store.Schema.Singular, s.store.Schema.Fields, s.store.Schema.Blank(), s.app.choices)
	return nil
}

func (s *entityScreen[T, In]) openEdit(item T) {
	if s.blocked() {
		return
	}
	s.editing = s.store.Schema.ID(item)
	s.form = newForm("Edit "+s.store.Schema.Singular, s.store.Schema.Fields, s.store.Schema.Values(item), s.app.choices)
}

func (s *entityScreen[T, In]) requestDelete(item T) {
	id := s.store.Schema.ID(item)
	label := s.store.Schema.Label(item)
	store := s.store
	s.app.confirm.Open(confirm.Request{
		Key:     s.deleteKey(id),
		Title:   confirm.DeleteTitle(s.store.Schema.Singular),
		Message: s.store.Schema.DeleteMessage(label),
		OnConfirm: func(ctx context.Context) error {
			return store.Delete(ctx, id)
		},
	})
}

func (s *entityScreen[T, In]) submit() tea.Cmd {
	values := s.form.Values()
	if err := s.store.Schema.Validate(values); err != nil {
		s.form.Err = err.Error()
		return nil
	}
	s.form.Err = ""
	s.form.Busy = true
	store, ctx, editing := s.store, s.app.ctx, s.editing
	return func() tea.Msg {
		var (
			item T
			err  error
		)
		if editing == "" {
			item, err = store.Create(ctx, values)
		} else {
			item, err = store.Update(ctx, editing, values)
		}
		return savedMsg[T]{item: item, editing: editing, err: err}
	}
}

func (s *entityScreen[T, In]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg[T]:
		s.items.Reset(msg.items, msg.err)
		if msg.err != nil {
			s.app.logger.Warn("load failed", "kind", s.kind(), "error", msg.err)
		}
		s.clampCursor()
		s.notifyChanged()
		return nil

	case savedMsg[T]:
		if s.form == nil {
			return nil
		}
		s.form.Busy = false
		if msg.err != nil {
			s.form.Err = msg.err.Error()
			return nil
		}
		if msg.editing == "" {
			s.items.Append(msg.item)
		} else {
			s.items.ReplaceByID(msg.item)
		}
		s.form = nil
		s.notifyChanged()
		s.follow(s.store.Schema.ID(msg.item))
		return flash(s.store.Schema.Singular + " saved")

	case replacedMsg[T]:
		if s.aux != nil {
			s.aux.Busy = false
			if msg.err != nil {
				s.aux.Err = msg.err.Error()
				return nil
			}
			s.aux = nil
		}
		if msg.err != nil {
			return flashErr(msg.err)
		}
		s.items.ReplaceByID(msg.item)
		s.notifyChanged()
		s.follow(s.store.Schema.ID(msg.item))
		return nil

	case deleteConfirmedMsg:
		if s.open != "" && msg.Key == s.deleteKey(s.open) {
			s.closePanel()
		}
		return nil

	case confirm.DoneMsg:
		if msg.Err == nil {
			if id, ok := strings.CutPrefix(msg.Key, string(s.kind())+":"); ok {
				s.items.Remove(id)
				s.clampCursor()
				s.notifyChanged()
			}
		}
		if s.timeline != nil {
			s.timeline.done(msg)
		}
		if s.onDone != nil {
			s.onDone(msg)
		}
		return nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	var cmds []tea.Cmd
	if s.form != nil {
		_, cmd := s.form.Update(msg)
		cmds = append(cmds, cmd)
	}
	if s.aux != nil {
		_, cmd := s.aux.Update(msg)
		cmds = append(cmds, cmd)
	}
	if s.timeline != nil {
		cmds = append(cmds, s.timeline.Update(msg))
	}
	return tea.Batch(cmds...)
}

func (s *entityScreen[T, In]) handleKey(msg tea.KeyMsg) tea.Cmd {
	keys := s.app.keys
	if s.form != nil {
		result, cmd := s.form.Update(msg)
		switch result {
		case formCancel:
			s.form = nil
		case formSubmit:
			return s.submit()
		}
		return cmd
	}
	if s.aux != nil {
		result, cmd := s.aux.Update(msg)
		switch result {
		case formCancel:
			s.aux = nil
		case formSubmit:
			s.aux.Busy = true
			return s.auxSubmit(s.aux.Values())
		}
		return cmd
	}

	if s.open != "" {
		item, ok := s.items.Find(s.open)
		if !ok {
			s.closePanel()
			return nil
		}
		if s.timeline != nil && s.timeline.capturing() {
			return s.timeline.Update(msg)
		}
		if s.panelKeys != nil {
			if cmd, handled := s.panelKeys(msg, item); handled {
				return cmd
			}
		}
		switch {
		case key.Matches(msg, keys.Back):
			s.closePanel()
		case key.Matches(msg, keys.Edit):
			s.openEdit(item)
		case key.Matches(msg, keys.Delete):
			s.requestDelete(item)
		default:
			if s.timeline != nil {
				return s.timeline.Update(msg)
			}
		}
		return nil
	}

	if s.listKeys != nil {
		if cmd, handled := s.listKeys(msg); handled {
			return cmd
		}
	}
	switch {
	case key.Matches(msg, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(msg, keys.Down):
		if s.cursor < len(s.rows())-1 {
			s.cursor++
		}
	case key.Matches(msg, keys.New):
		return s.openAdd()
	case key.Matches(msg, keys.Refresh):
		return s.Init()
	case key.Matches(msg, keys.Open):
		if item, ok := s.selected(); ok {
			return s.openPanel(s.store.Schema.ID(item))
		}
	case key.Matches(msg, keys.Edit):
		if item, ok := s.selected(); ok {
			s.openEdit(item)
		}
	case key.Matches(msg, keys.Delete):
		if item, ok := s.selected(); ok {
			s.requestDelete(item)
		}
	}
	return nil
}

func (s *entityScreen[T, In]) View(width, height int) string {
	st := s.app.styles
	if s.form != nil {
		return s.form.View(st, min(width, 80))
	}
	if s.aux != nil {
		return s.aux.View(st, min(width, 80))
	}

	var b strings.Builder
	b.WriteString(st.Title.Render(s.store.Schema.Title))
	if s.header != nil {
		b.WriteString("  " + st.Muted.Render(s.header()))
	}
	b.WriteString("\n")
	if s.items.Err != nil {
		b.WriteString(st.Error.Render("Could not load "+strings.ToLower(s.store.Schema.Title)+": "+s.items.Err.Error()) + "\n")
	}
	if s.notice != "" {
		b.WriteString(st.Warning.Render(s.notice) + "\n")
	}
	if !s.items.Loaded() {
		b.WriteString(st.Muted.Render(s.app.spinner.View() + " Loading…"))
		return b.String()
	}

	listWidth := width
	if s.open != "" && width >= 90 {
		listWidth = width / 2
	}
	list := s.renderList(listWidth)

	if s.open == "" {
		b.WriteString(list)
		b.WriteString("\n" + st.helpLine(append([]key.Binding{s.app.keys.Open, s.app.keys.New, s.app.keys.Edit, s.app.keys.Delete}, s.footer...)...))
		return b.String()
	}

	item, ok := s.items.Find(s.open)
	if !ok {
		b.WriteString(list)
		return b.String()
	}
	panel := s.renderPanel(item, width-listWidth-2)
	if listWidth == width {
		b.WriteString(panel)
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", panel))
	}
	return b.String()
}

func (s *entityScreen[T, In]) renderList(width int) string {
	st := s.app.styles
	var b strings.Builder
	index := 0
	for _, g := range s.groups() {
		if g.title != "" {
			b.WriteString(st.Section.Render(fmt.Sprintf("%s (%d)", g.title, len(g.items))) + "\n")
		}
		if len(g.items) == 0 && g.empty != "" {
			b.WriteString(st.Muted.Render("  "+g.empty) + "\n")
		}
		for _, item := range g.items {
			line := truncate(s.row(item, width-2), width-2)
			if index == s.cursor {
				b.WriteString(st.RowSelected.Render(line))
			} else {
				b.WriteString(st.Row.Render(line))
			}
			b.WriteString("\n")
			index++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *entityScreen[T, In]) renderPanel(item T, width int) string {
	st := s.app.styles
	if width < 30 {
		width = 30
	}
	var b strings.Builder
	b.WriteString(st.Title.Render(s.store.Schema.Label(item)) + "\n")
	b.WriteString(s.detail(item, width-4))
	if s.timeline != nil {
		b.WriteString("\n" + s.timeline.View(width-4))
	}
	bindings := []key.Binding{s.app.keys.Edit, s.app.keys.Delete, s.app.keys.Back}
	bindings = append(bindings, s.footer...)
	b.WriteString("\n" + st.helpLine(bindings...))
	return st.Panel.Width(width).Render(b.String())
}

func flash(text string) tea.Cmd {
	return func() tea.Msg { return flashMsg{text: text} }
}

func flashErr(err error) tea.Cmd {
	return func() tea.Msg { return flashMsg{text: err.Error(), isErr: true} }
}
