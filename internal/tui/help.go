package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const helpMarkdown = `# Help

## How to add an Organisation
1. Press **a** then **o**, or open the Organisations screen and press **n**.
2. Enter the name. Website, description and current status are optional.
3. Press **ctrl+s** to save.

## How to add a Contact
1. Press **a** then **c**, or press **n** on the Contacts screen.
2. Enter the name and any email, phone or role.
3. Use the left and right arrows on the Organisation field to link the contact.
4. Press **ctrl+s** to save.

## How to add a Task
1. Press **a** then **t**, or press **n** on the Tasks screen.
2. Give the task a title and an optional due date in YYYY-MM-DD form.
3. Link an organisation or contact if it relates to one.
4. Press **t** on a task to move it to the next status, and **l** in its panel to attach a link.

## How to add an Event
1. Press **a** then **e**, or press **n** on the Calendar screen.
2. Enter the title plus start and end times as YYYY-MM-DD HH:MM.
3. Press **v** to switch between month, week, day and agenda views.

## How to add Updates
1. Open an organisation or contact with **enter**.
2. Press **u**, choose the update type and write the content.
3. Organisation updates can be removed with **x**.

## How to run a Report
1. Open the Reports screen with **6**.
2. Select **Current Status Report** and press **enter**.
3. Press **p** to save the report as a PDF.
`

type helpScreen struct {
	app   *App
	view  viewport.Model
	width int
}

func newHelpScreen(app *App) *helpScreen {
	return &helpScreen{app: app, view: viewport.New(80, 20)}
}

func (h *helpScreen) Init() tea.Cmd   { return nil }
func (h *helpScreen) Capturing() bool { return false }

func (h *helpScreen) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.KeyMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	h.view, cmd = h.view.Update(msg)
	return cmd
}

func (h *helpScreen) View(width, height int) string {
	if h.width != width || h.view.Height != height {
		h.width = width
		h.view.Width = width
		h.view.Height = max(height, 3)
		h.view.SetContent(renderMarkdown(helpMarkdown, width-4))
	}
	return h.view.View()
}
