package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the bindings shared by every screen.
type KeyMap struct {
	Quit         key.Binding
	Up           key.Binding
	Down         key.Binding
	Open         key.Binding
	Back         key.Binding
	New          key.Binding
	Add          key.Binding
	Edit         key.Binding
	Delete       key.Binding
	Toggle       key.Binding
	Update       key.Binding
	DeleteUpdate key.Binding
	Link         key.Binding
	DeleteLink   key.Binding
	Search       key.Binding
	Next         key.Binding
	Prev         key.Binding
	View         key.Binding
	Export       key.Binding
	Save         key.Binding
	Confirm      key.Binding
	Cancel       key.Binding
	Tab          key.Binding
	BackTab      key.Binding
	Refresh      key.Binding
}

func defaultKeys() KeyMap {
	return KeyMap{
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("↵", "open")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		New:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Add:          key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:         key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Toggle:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "status")),
		Update:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "add update")),
		DeleteUpdate: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete update")),
		Link:         key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "add link")),
		DeleteLink:   key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete link")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Next:         key.NewBinding(key.WithKeys("right", "]"), key.WithHelp("→", "next")),
		Prev:         key.NewBinding(key.WithKeys("left", "["), key.WithHelp("←", "previous")),
		View:         key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view")),
		Export:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "export pdf")),
		Save:         key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Confirm:      key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		Cancel:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		Tab:          key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		BackTab:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
}

// helpLine renders "key action" pairs for a footer.
func (s Styles) helpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += " • "
		}
		h := b.Help()
		out += s.HelpKey.Render(h.Key) + " " + h.Desc
	}
	return s.Help.Render(out)
}
