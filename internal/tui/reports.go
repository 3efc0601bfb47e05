package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/splax/cornerstone/internal/report"
)

type digestLoadedMsg struct {
	digest report.Digest
	err    error
}

type exportedMsg struct {
	path string
	err  error
}

// reportsScreen lists the report catalogue and shows a generated digest.
type reportsScreen struct {
	app       *App
	cursor    int
	running   bool
	digest    *report.Digest
	err       error
	exporting bool
	view      viewport.Model
	width     int
}

func newReportsScreen(app *App) *reportsScreen {
	return &reportsScreen{app: app, view: viewport.New(80, 20)}
}

func (r *reportsScreen) Init() tea.Cmd   { return nil }
func (r *reportsScreen) Capturing() bool { return false }

func (r *reportsScreen) run() tea.Cmd {
	r.running = true
	r.err = nil
	api, ctx := r.app.api, r.app.ctx
	return func() tea.Msg {
		d, err := api.StatusReport(ctx)
		return digestLoadedMsg{digest: d, err: err}
	}
}

func reportFilename(def report.Definition) string {
	return def.ID + "-report.pdf"
}

func (r *reportsScreen) export() tea.Cmd {
	if r.digest == nil || r.exporting {
		return nil
	}
	r.exporting = true
	d := *r.digest
	path := filepath.Join(r.app.exportDir, reportFilename(report.CurrentStatus))
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := report.WritePDF(f, d); err != nil {
			f.Close()
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path, err: f.Close()}
	}
}

func (r *reportsScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case digestLoadedMsg:
		r.running = false
		if msg.err != nil {
			r.err = msg.err
			r.app.logger.Error("generate status report", "error", msg.err)
			return nil
		}
		r.digest = &msg.digest
		r.width = 0
		return nil
	case exportedMsg:
		r.exporting = false
		if msg.err != nil {
			r.app.logger.Error("export status report", "error", msg.err)
			return flashErr(fmt.Errorf("export failed: %w", msg.err))
		}
		return flash("Saved " + msg.path)
	case tea.KeyMsg:
		keys := r.app.keys
		if r.digest != nil {
			switch {
			case key.Matches(msg, keys.Back):
				r.digest = nil
				return nil
			case key.Matches(msg, keys.Export):
				return r.export()
			case key.Matches(msg, keys.Refresh):
				return r.run()
			}
			var cmd tea.Cmd
			r.view, cmd = r.view.Update(msg)
			return cmd
		}
		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(report.Catalogue)-1 {
				r.cursor++
			}
		case key.Matches(msg, keys.Open):
			if !r.running {
				return r.run()
			}
		}
	}
	return nil
}

func (r *reportsScreen) View(width, height int) string {
	st := r.app.styles
	if r.digest != nil {
		if r.width != width || r.view.Height != height-2 {
			r.width = width
			r.view.Width = width
			r.view.Height = max(height-2, 3)
			r.view.SetContent(renderMarkdown(r.digest.Markdown(), width-4))
		}
		help := st.helpLine(r.app.keys.Export, r.app.keys.Refresh, r.app.keys.Back)
		if r.exporting {
			help = st.Muted.Render(r.app.spinner.View() + " Exporting PDF…")
		}
		return r.view.View() + "\n" + help
	}

	var b strings.Builder
	b.WriteString(st.Title.Render("Reports") + "\n")
	for i, def := range report.Catalogue {
		line := def.Title + "  " + st.Muted.Render(def.Description)
		if i == r.cursor {
			b.WriteString(st.RowSelected.Render(line))
		} else {
			b.WriteString(st.Row.Render(line))
		}
		b.WriteString("\n")
	}
	switch {
	case r.running:
		b.WriteString(st.Muted.Render(r.app.spinner.View()+" Generating report…") + "\n")
	case r.err != nil:
		b.WriteString(st.Error.Render("Could not generate the report: "+r.err.Error()) + "\n")
	}
	b.WriteString(st.Help.Render("enter run report"))
	return b.String()
}
