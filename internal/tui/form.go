package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/resource"
)

type formResult int

const (
	formEditing formResult = iota
	formSubmit
	formCancel
)

type formEntry struct {
	field   resource.Field
	input   textinput.Model
	area    textarea.Model
	options []domain.Ref
	choice  int
}

func (e *formEntry) multiline() bool { return e.field.Kind == resource.FieldMultiline }
func (e *formEntry) choosing() bool  { return e.field.Kind == resource.FieldRef }

// form edits a set of resource fields. Keys not covered by a field are carried
// through untouched, so hidden values survive an edit.
type form struct {
	title   string
	entries []*formEntry
	base    resource.Values
	focus   int
	keys    KeyMap
	Err     string
	Busy    bool
}

// choiceSource returns the selectable values of a FieldRef field.
type choiceSource func(resource.Field) []domain.Ref

func newForm(title string, fields []resource.Field, initial resource.Values, choices choiceSource) *form {
	f := &form{title: title, base: initial.Clone(), keys: defaultKeys()}
	for _, field := range fields {
		e := &formEntry{field: field}
		value := initial[field.Key]
		switch field.Kind {
		case resource.FieldMultiline:
			e.area = textarea.New()
			e.area.ShowLineNumbers = false
			e.area.SetHeight(3)
			e.area.SetValue(value)
		case resource.FieldRef:
			if !field.Required {
				e.options = append(e.options, domain.Ref{Name: "None"})
			}
			if choices != nil {
				e.options = append(e.options, choices(field)...)
			}
			e.choice = -1
			for i, opt := range e.options {
				if opt.ID == value {
					e.choice = i
				}
			}
			switch {
			case e.choice >= 0:
			case value != "":
				// The current target may not be loaded yet; keep it selectable.
				name := initial[resource.RefNameKey(field.Key)]
				if name == "" {
					name = value
				}
				e.options = append(e.options, domain.Ref{ID: value, Name: name})
				e.choice = len(e.options) - 1
			default:
				e.choice = 0
			}
		default:
			e.input = textinput.New()
			e.input.CharLimit = 500
			e.input.SetValue(value)
			switch field.Kind {
			case resource.FieldDate:
				e.input.Placeholder = resource.DateLayout
			case resource.FieldDateTime:
				e.input.Placeholder = resource.DateTimeLayout
			default:
				e.input.Placeholder = field.Label
			}
		}
		f.entries = append(f.entries, e)
	}
	f.applyFocus()
	return f
}

// mask hides the typed value of a text field.
func (f *form) mask(fieldKey string) {
	for _, e := range f.entries {
		if e.field.Key == fieldKey {
			e.input.EchoMode = textinput.EchoPassword
			e.input.EchoCharacter = '•'
		}
	}
}

func (f *form) setWidth(width int) {
	w := max(width-8, 20)
	for _, e := range f.entries {
		switch {
		case e.multiline():
			e.area.SetWidth(w)
		case e.choosing():
		default:
			e.input.Width = w
		}
	}
}

func (f *form) applyFocus() {
	for i, e := range f.entries {
		switch {
		case e.choosing():
		case e.multiline() && i == f.focus:
			e.area.Focus()
		case e.multiline():
			e.area.Blur()
		case i == f.focus:
			e.input.Focus()
		default:
			e.input.Blur()
		}
	}
}

func (f *form) move(delta int) {
	if len(f.entries) == 0 {
		return
	}
	f.focus = (f.focus + delta + len(f.entries)) % len(f.entries)
	f.applyFocus()
}

// Values returns the base values overlaid with the current input.
func (f *form) Values() resource.Values {
	v := f.base.Clone()
	for _, e := range f.entries {
		switch e.field.Kind {
		case resource.FieldMultiline:
			v[e.field.Key] = e.area.Value()
		case resource.FieldRef:
			if len(e.options) > 0 {
				v[e.field.Key] = e.options[e.choice].ID
			} else {
				v[e.field.Key] = ""
			}
		default:
			v[e.field.Key] = e.input.Value()
		}
	}
	return v
}

// Update handles one message and reports whether the form was submitted or cancelled.
func (f *form) Update(msg tea.Msg) (formResult, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return formEditing, f.updateFocused(msg)
	}
	if f.Busy {
		return formEditing, nil
	}
	current := f.entries[f.focus]
	switch {
	case key.Matches(keyMsg, f.keys.Back):
		return formCancel, nil
	case key.Matches(keyMsg, f.keys.Save):
		return formSubmit, nil
	case key.Matches(keyMsg, f.keys.Tab):
		f.move(1)
		return formEditing, nil
	case key.Matches(keyMsg, f.keys.BackTab):
		f.move(-1)
		return formEditing, nil
	case current.choosing() && key.Matches(keyMsg, f.keys.Next):
		if len(current.options) > 0 {
			current.choice = (current.choice + 1) % len(current.options)
		}
		return formEditing, nil
	case current.choosing() && key.Matches(keyMsg, f.keys.Prev):
		if len(current.options) > 0 {
			current.choice = (current.choice - 1 + len(current.options)) % len(current.options)
		}
		return formEditing, nil
	case keyMsg.Type == tea.KeyEnter && !current.multiline():
		if f.focus == len(f.entries)-1 {
			return formSubmit, nil
		}
		f.move(1)
		return formEditing, nil
	}
	return formEditing, f.updateFocused(msg)
}

func (f *form) updateFocused(msg tea.Msg) tea.Cmd {
	if len(f.entries) == 0 {
		return nil
	}
	e := f.entries[f.focus]
	var cmd tea.Cmd
	switch {
	case e.multiline():
		e.area, cmd = e.area.Update(msg)
	case e.choosing():
	default:
		e.input, cmd = e.input.Update(msg)
	}
	return cmd
}

func (f *form) View(s Styles, width int) string {
	f.setWidth(width)
	var b strings.Builder
	b.WriteString(s.Title.Render(f.title))
	b.WriteString("\n")
	for i, e := range f.entries {
		label := e.field.Label
		if e.field.Required {
			label += " *"
		}
		b.WriteString("\n" + s.Label.Render(label) + "\n")
		box := s.Input
		if i == f.focus {
			box = s.InputFocused
		}
		switch {
		case e.multiline():
			b.WriteString(box.Render(e.area.View()))
		case e.choosing():
			name := "(none available)"
			if len(e.options) > 0 {
				name = e.options[e.choice].Name
			}
			b.WriteString(box.Render("‹ " + truncate(name, max(width-14, 10)) + " ›"))
		default:
			b.WriteString(box.Render(e.input.View()))
		}
		b.WriteString("\n")
	}
	if f.Err != "" {
		b.WriteString("\n" + s.Error.Render(f.Err) + "\n")
	}
	if f.Busy {
		b.WriteString("\n" + s.Muted.Render("Saving…") + "\n")
	}
	b.WriteString(s.helpLine(f.keys.Tab, f.keys.Save, f.keys.Back))
	return lipgloss.NewStyle().Width(width).Render(b.String())
}
