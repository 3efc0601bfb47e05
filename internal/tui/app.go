// Package tui is the Cornerstone terminal client.
package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/splax/cornerstone/internal/confirm"
	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/localstore"
	"github.com/splax/cornerstone/internal/resource"
	"github.com/splax/cornerstone/internal/search"
	"github.com/splax/cornerstone/internal/session"
	"github.com/splax/cornerstone/pkg/api/client"
)

// screen is one tab of the app.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
	// Capturing reports that a text input has focus, so global keys are passed through.
	Capturing() bool
}

type screenID int

const (
	screenDashboard screenID = iota
	screenOrganisations
	screenContacts
	screenTasks
	screenCalendar
	screenReports
	screenHelp
	screenSettings
)

var screenNames = []string{"dashboard", "organisations", "contacts", "tasks", "calendar", "reports", "help", "settings"}

var screenTitles = []string{"Dashboard", "Organisations", "Contacts", "Tasks", "Calendar", "Reports", "Help", "Settings"}

func parseScreen(name string) (screenID, bool) {
	for i, n := range screenNames {
		if n == name {
			return screenID(i), true
		}
	}
	return screenDashboard, false
}

// Options configures the app.
type Options struct {
	Client *client.Client
	// State persists tokens and the last screen; nil disables persistence.
	State     *localstore.Store
	Logger    *slog.Logger
	Debounce  time.Duration
	Location  *time.Location
	Now       func() time.Time
	ExportDir string
}

// App is the root bubbletea model.
type App struct {
	ctx    context.Context
	api    *client.Client
	state  *localstore.Store
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time

	keys    KeyMap
	styles  Styles
	spinner spinner.Model

	session       *session.Gate
	sessionEvents <-chan domain.SessionEvent
	started       bool
	confirm       *confirm.Gate
	login         *loginScreen

	team    domain.Team
	teamErr error

	current   screenID
	screens   []screen
	orgs      *organisationScreen
	contacts  *contactScreen
	tasks     *taskScreen
	events    *eventScreen
	calState  *calendarState
	settings  *settingsScreen
	exportDir string

	searcher      search.Searcher
	popover       search.Popover
	searchInput   textinput.Model
	searchFocused bool
	searchCursor  int
	debounce      time.Duration

	adding bool
	flash  flashMsg

	width  int
	height int
}

// New builds the app. ctx bounds every API call it makes.
func New(ctx context.Context, opts Options) *App {
	applyColorProfile()
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	in := textinput.New()
	in.Placeholder = "Search organisations and contacts"
	in.Prompt = "/ "
	in.CharLimit = 100
	in.Width = 34

	a := &App{
		ctx:         ctx,
		api:         opts.Client,
		state:       opts.State,
		logger:      opts.Logger,
		loc:         opts.Location,
		now:         opts.Now,
		keys:        defaultKeys(),
		styles:      newStyles(),
		spinner:     sp,
		session:     session.NewGate(opts.Client, opts.Logger),
		confirm:     confirm.New(opts.Logger),
		searcher:    search.New(opts.Client.Organisations(), opts.Client.Contacts()),
		searchInput: in,
		debounce:    opts.Debounce,
		exportDir:   opts.ExportDir,
	}
	a.login = newLoginScreen(a)
	return a
}

// Run starts the program and blocks until it quits.
func Run(ctx context.Context, opts Options) error {
	app := New(ctx, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	app.session.Unsubscribe()
	return err
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.session.Check(a.ctx))
}

// startSession builds the screens and loads everything after sign-in.
func (a *App) startSession() tea.Cmd {
	a.started = true
	a.orgs = a.newOrganisationScreen()
	a.contacts = a.newContactScreen()
	a.tasks = a.newTaskScreen()
	a.events, a.calState = a.newEventScreen()
	a.settings = newSettingsScreen(a)
	a.screens = []screen{
		newDashboardScreen(a),
		a.orgs,
		a.contacts,
		a.tasks,
		a.events,
		newReportsScreen(a),
		newHelpScreen(a),
		a.settings,
	}
	a.current = screenDashboard
	if a.state != nil {
		if name, err := a.state.LastView(a.ctx); err == nil {
			if id, ok := parseScreen(name); ok {
				a.current = id
			}
		}
	}

	cmds := []tea.Cmd{a.session.Subscribe(a.ctx), a.resolveTeam()}
	for _, s := range a.screens {
		cmds = append(cmds, s.Init())
	}
	return tea.Batch(cmds...)
}

func (a *App) resolveTeam() tea.Cmd {
	api, ctx := a.api, a.ctx
	return func() tea.Msg {
		team, err := api.CurrentTeam(ctx)
		return teamResolvedMsg{team: team, err: err}
	}
}

func (a *App) signOutLocal() {
	a.session.SignOut()
	a.api.ClearSession()
	a.api.SetTeam("")
	if a.state != nil {
		if err := a.state.ClearSession(a.ctx); err != nil {
			a.logger.Warn("clear saved session", "error", err)
		}
	}
	a.started = false
	a.screens = nil
	a.team, a.teamErr = domain.Team{}, nil
	a.popover.Reset()
	a.login = newLoginScreen(a)
}

func (a *App) recordView(kind domain.Kind, id string) tea.Cmd {
	api, ctx, logger := a.api, a.ctx, a.logger
	return func() tea.Msg {
		if err := api.RecordView(ctx, kind, id); err != nil {
			logger.Warn("record recent view", "kind", kind, "id", id, "error", err)
			return nil
		}
		return viewRecordedMsg{}
	}
}

// choices lists the records a reference field may point at.
func (a *App) choices(f resource.Field) []domain.Ref {
	var refs []domain.Ref
	switch f.Ref {
	case domain.KindOrganisation:
		for _, o := range a.orgs.items.Items() {
			refs = append(refs, domain.Ref{ID: o.ID, Name: o.Name})
		}
	case domain.KindContact:
		for _, c := range a.contacts.items.Items() {
			refs = append(refs, domain.Ref{ID: c.ID, Name: c.Name})
		}
	case domain.KindTask:
		for _, t := range a.tasks.items.Items() {
			refs = append(refs, domain.Ref{ID: t.ID, Name: t.Title})
		}
	}
	return refs
}

func (a *App) currentScreen() screen {
	if int(a.current) >= len(a.screens) {
		return nil
	}
	return a.screens[a.current]
}

func (a *App) switchTo(id screenID) {
	if int(id) >= len(a.screens) {
		return
	}
	a.current = id
	a.flash = flashMsg{}
	if a.state != nil {
		if err := a.state.SetLastView(a.ctx, screenNames[id]); err != nil {
			a.logger.Warn("save last view", "error", err)
		}
	}
}

func screenFor(kind domain.Kind) screenID {
	switch kind {
	case domain.KindContact:
		return screenContacts
	case domain.KindTask:
		return screenTasks
	case domain.KindEvent:
		return screenCalendar
	default:
		return screenOrganisations
	}
}

// broadcast hands msg to every screen; loads and results find their owner by type.
func (a *App) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.screens))
	for _, s := range a.screens {
		cmds = append(cmds, s.Update(msg))
	}
	return tea.Batch(cmds...)
}

// dependents reloads the screens whose rows a successful delete may have changed.
func (a *App) dependents(key string) tea.Cmd {
	kind, _, ok := strings.Cut(key, ":")
	if !ok {
		return nil
	}
	switch domain.Kind(kind) {
	case domain.KindOrganisation:
		return tea.Batch(a.contacts.Init(), a.tasks.Init(), a.events.Init())
	case domain.KindContact:
		return tea.Batch(a.tasks.Init(), a.events.Init())
	case domain.KindTask:
		return a.events.Init()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case session.ResolvedMsg:
		status := a.session.Resolve(msg)
		if status != session.Authenticated {
			if a.started {
				a.signOutLocal()
			}
			return a, nil
		}
		if a.state != nil {
			if err := a.state.SaveSession(a.ctx, a.api.Session()); err != nil {
				a.logger.Warn("save session", "error", err)
			}
		}
		if a.settings != nil {
			a.settings.profile = msg.Info.User
		}
		if !a.started {
			return a, a.startSession()
		}
		return a, nil

	case session.SubscribedMsg:
		a.sessionEvents = msg.Events
		return a, session.Wait(msg.Events)

	case session.EventMsg:
		cmds := []tea.Cmd{session.Wait(a.sessionEvents)}
		switch a.session.Handle(msg.Event) {
		case session.ActionSignOut:
			a.signOutLocal()
		case session.ActionRecheck:
			cmds = append(cmds, a.session.Check(a.ctx))
		}
		return a, tea.Batch(cmds...)

	case session.StreamClosedMsg:
		a.logger.Info("session event stream closed")
		a.sessionEvents = nil
		return a, nil

	case authDoneMsg:
		if msg.err != nil {
			a.login.failed(msg.err)
			return a, nil
		}
		return a, a.session.Check(a.ctx)

	case signedOutMsg:
		a.signOutLocal()
		return a, nil

	case teamResolvedMsg:
		a.team, a.teamErr = msg.team, msg.err
		if msg.err != nil {
			a.logger.Warn("resolve team", "error", msg.err)
			return a, nil
		}
		a.api.SetTeam(msg.team.ID)
		if a.state != nil {
			if err := a.state.SetTeam(a.ctx, msg.team.ID); err != nil {
				a.logger.Warn("save team", "error", err)
			}
		}
		return a, nil

	case flashMsg:
		a.flash = msg
		return a, nil

	case OpenAddFormMsg:
		a.adding = false
		a.switchTo(screenFor(msg.Kind))
		return a, a.openAdd(msg.Kind)

	case navigateMsg:
		a.switchTo(screenFor(msg.Kind))
		return a, a.openPanel(msg.Kind, msg.ID)

	case confirm.DoneMsg:
		a.confirm.Done(msg)
		cmd := a.broadcast(msg)
		if msg.Err != nil {
			return a, tea.Batch(cmd, flash("Delete failed; see the log for details"))
		}
		return a, tea.Batch(cmd, a.dependents(msg.Key))

	case searchTickMsg:
		if !a.popover.Due(msg.seq) {
			return a, nil
		}
		searcher, ctx, term, seq := a.searcher, a.ctx, a.popover.Query(), msg.seq
		return a, func() tea.Msg {
			results, err := searcher.Search(ctx, term)
			return searchResultMsg{seq: seq, results: results, err: err}
		}

	case searchResultMsg:
		if msg.err != nil {
			a.logger.Warn("search failed", "error", msg.err)
		}
		if a.popover.Apply(msg.seq, msg.results, msg.err) {
			a.searchCursor = 0
		}
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}

	if a.session.Status() == session.Anonymous {
		return a, a.login.Update(msg)
	}
	cmds := []tea.Cmd{a.broadcast(msg)}
	if a.searchFocused {
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) openAdd(kind domain.Kind) tea.Cmd {
	switch kind {
	case domain.KindContact:
		return a.contacts.openAdd()
	case domain.KindTask:
		return a.tasks.openAdd()
	case domain.KindEvent:
		return a.events.openAdd()
	default:
		return a.orgs.openAdd()
	}
}

func (a *App) openPanel(kind domain.Kind, id string) tea.Cmd {
	var cmd tea.Cmd
	switch kind {
	case domain.KindContact:
		cmd = a.contacts.openPanel(id)
	case domain.KindTask:
		cmd = a.tasks.openPanel(id)
	case domain.KindEvent:
		cmd = a.events.openPanel(id)
	default:
		cmd = a.orgs.openPanel(id)
	}
	if cmd == nil {
		return flash("That record is no longer available")
	}
	return cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	switch a.session.Status() {
	case session.Loading:
		if key.Matches(msg, a.keys.Quit) {
			return tea.Quit
		}
		return nil
	case session.Anonymous:
		return a.login.Update(msg)
	}

	if req, open := a.confirm.Pending(); open {
		if a.confirm.Busy() {
			return nil
		}
		switch {
		case key.Matches(msg, a.keys.Confirm):
			closing := a.broadcast(deleteConfirmedMsg{Key: req.Key})
			return tea.Batch(closing, a.confirm.Confirm(a.ctx))
		case key.Matches(msg, a.keys.Cancel):
			a.confirm.Cancel()
		}
		return nil
	}

	if a.adding {
		a.adding = false
		var kind domain.Kind
		switch msg.String() {
		case "o":
			kind = domain.KindOrganisation
		case "c":
			kind = domain.KindContact
		case "t":
			kind = domain.KindTask
		case "e":
			kind = domain.KindEvent
		default:
			return nil
		}
		return func() tea.Msg { return OpenAddFormMsg{Kind: kind} }
	}

	if a.searchFocused {
		return a.handleSearchKey(msg)
	}

	cur := a.currentScreen()
	if cur == nil {
		return nil
	}
	if cur.Capturing() {
		return cur.Update(msg)
	}
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.Search):
		a.searchFocused = true
		return a.searchInput.Focus()
	case key.Matches(msg, a.keys.Add):
		a.adding = true
		return nil
	case msg.Type == tea.KeyTab:
		a.switchTo(screenID((int(a.current) + 1) % len(a.screens)))
		return nil
	case msg.Type == tea.KeyShiftTab:
		a.switchTo(screenID((int(a.current) + len(a.screens) - 1) % len(a.screens)))
		return nil
	}
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '8' {
		a.switchTo(screenID(s[0] - '1'))
		return nil
	}
	return cur.Update(msg)
}

func (a *App) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		a.popover.Close()
		a.searchFocused = false
		a.searchInput.Blur()
		return nil
	case tea.KeyUp:
		if a.searchCursor > 0 {
			a.searchCursor--
		}
		return nil
	case tea.KeyDown:
		if a.searchCursor < len(a.popover.Results())-1 {
			a.searchCursor++
		}
		return nil
	case tea.KeyEnter:
		results := a.popover.Results()
		if a.popover.Status() != search.Showing || a.searchCursor >= len(results) {
			return nil
		}
		picked := results[a.searchCursor]
		a.popover.Reset()
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.searchFocused = false
		return func() tea.Msg { return navigateMsg{Kind: picked.Kind, ID: picked.ID} }
	}

	before := a.searchInput.Value()
	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	value := a.searchInput.Value()
	if value == before {
		return cmd
	}
	seq, ok := a.popover.SetQuery(value)
	a.searchCursor = 0
	if !ok {
		return cmd
	}
	return tea.Batch(cmd, tea.Tick(a.debounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	}))
}

func (a *App) View() string {
	width := contentWidth(a.width)
	switch a.session.Status() {
	case session.Loading:
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
			a.spinner.View()+" Checking your session…")
	case session.Anonymous:
		return a.login.View(width, a.height)
	}

	header := a.renderHeader(width)
	bodyHeight := max(a.height-lipgloss.Height(header)-2, 5)

	var body string
	switch {
	case a.confirm.State() != confirm.Idle:
		body = a.renderConfirm(width)
	case a.adding:
		body = a.renderAddChooser()
	default:
		if cur := a.currentScreen(); cur != nil {
			body = cur.View(width, bodyHeight)
		}
	}
	if a.popover.Open() {
		body = a.renderPopover(width) + "\n" + body
	}

	footer := a.styles.helpLine(a.keys.Search, a.keys.Add, a.keys.Quit) + a.styles.Help.Render("  tab/1-8 switch screens")
	if a.flash.text != "" {
		if a.flash.isErr {
			footer = a.styles.Error.Render(a.flash.text)
		} else {
			footer = a.styles.Success.Render(a.flash.text)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (a *App) renderHeader(width int) string {
	var tabs []string
	for i, title := range screenTitles {
		label := string(rune('1'+i)) + " " + title
		if screenID(i) == a.current {
			tabs = append(tabs, a.styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, a.styles.Tab.Render(label))
		}
	}
	who := a.session.Info().User.DisplayName()
	if a.team.Name != "" {
		who += " · " + a.team.Name
	}
	top := a.styles.Title.Render("Cornerstone CRM") + "  " + a.styles.Muted.Render(who)
	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		truncate(strings.Join(tabs, ""), width),
		a.searchInput.View(),
	)
}

func (a *App) renderPopover(width int) string {
	var b strings.Builder
	switch a.popover.Status() {
	case search.Searching:
		b.WriteString(a.styles.Muted.Render(a.spinner.View() + " Searching…"))
	case search.NoResults:
		if err := a.popover.Err(); err != nil {
			b.WriteString(a.styles.Error.Render("Search failed: " + err.Error()))
		} else {
			b.WriteString(a.styles.Muted.Render(search.NoResultsText))
		}
	case search.Showing:
		for i, r := range a.popover.Results() {
			label := kindLabel(r.Kind) + "  " + r.Title
			if r.Subtitle != "" {
				label += "  " + a.styles.Muted.Render(r.Subtitle)
			}
			if i == a.searchCursor {
				b.WriteString(a.styles.RowSelected.Render(label))
			} else {
				b.WriteString(a.styles.Row.Render(label))
			}
			b.WriteString("\n")
		}
	}
	return a.styles.Panel.Width(min(width-2, 70)).Render(strings.TrimRight(b.String(), "\n"))
}

func kindLabel(k domain.Kind) string {
	switch k {
	case domain.KindOrganisation:
		return "Org"
	case domain.KindContact:
		return "Contact"
	case domain.KindTask:
		return "Task"
	default:
		return "Event"
	}
}

func (a *App) renderConfirm(width int) string {
	req, _ := a.confirm.Pending()
	var b strings.Builder
	b.WriteString(a.styles.Title.Render(req.Title) + "\n\n")
	b.WriteString(wrap(req.Message, min(width-10, 60)) + "\n\n")
	if a.confirm.Busy() {
		b.WriteString(a.styles.Muted.Render(a.spinner.View() + " Deleting…"))
	} else {
		b.WriteString(a.styles.helpLine(a.keys.Confirm, a.keys.Cancel))
	}
	return lipgloss.Place(width, 12, lipgloss.Center, lipgloss.Center, a.styles.Modal.Render(b.String()))
}

func (a *App) renderAddChooser() string {
	body := a.styles.Title.Render("Add") + "\n\n" +
		a.styles.HelpKey.Render("o") + " Organisation\n" +
		a.styles.HelpKey.Render("c") + " Contact\n" +
		a.styles.HelpKey.Render("t") + " Task\n" +
		a.styles.HelpKey.Render("e") + " Event\n\n" +
		a.styles.Muted.Render("any other key cancels")
	return a.styles.Modal.Render(body)
}
