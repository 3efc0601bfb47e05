package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the colour scheme of the terminal client.
type Theme struct {
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color
	Primary       lipgloss.Color
	Accent        lipgloss.Color
	Success       lipgloss.Color
	Warning       lipgloss.Color
	Error         lipgloss.Color
	Border        lipgloss.Color
	BorderFocus   lipgloss.Color
	Selection     lipgloss.Color
}

var theme = Theme{
	Foreground:    lipgloss.Color("#c0caf5"),
	ForegroundDim: lipgloss.Color("#565f89"),
	Primary:       lipgloss.Color("#7aa2f7"),
	Accent:        lipgloss.Color("#7dcfff"),
	Success:       lipgloss.Color("#9ece6a"),
	Warning:       lipgloss.Color("#e0af68"),
	Error:         lipgloss.Color("#f7768e"),
	Border:        lipgloss.Color("#3b4261"),
	BorderFocus:   lipgloss.Color("#7aa2f7"),
	Selection:     lipgloss.Color("#33467c"),
}

// maxWidth caps the content column on wide terminals.
const maxWidth = 110

func contentWidth(terminalWidth int) int {
	if terminalWidth <= 0 || terminalWidth > maxWidth {
		return maxWidth
	}
	return terminalWidth
}

// Styles holds the pre-computed styles.
type Styles struct {
	Title        lipgloss.Style
	Muted        lipgloss.Style
	Tab          lipgloss.Style
	TabActive    lipgloss.Style
	Row          lipgloss.Style
	RowSelected  lipgloss.Style
	Section      lipgloss.Style
	Panel        lipgloss.Style
	Modal        lipgloss.Style
	Input        lipgloss.Style
	InputFocused lipgloss.Style
	Label        lipgloss.Style
	Error        lipgloss.Style
	Success      lipgloss.Style
	Warning      lipgloss.Style
	Help         lipgloss.Style
	HelpKey      lipgloss.Style
	Link         lipgloss.Style
}

func newStyles() Styles {
	t := theme
	return Styles{
		Title:        lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Muted:        lipgloss.NewStyle().Foreground(t.ForegroundDim),
		Tab:          lipgloss.NewStyle().Foreground(t.ForegroundDim).Padding(0, 1),
		TabActive:    lipgloss.NewStyle().Foreground(t.Primary).Background(t.Selection).Padding(0, 1).Bold(true),
		Row:          lipgloss.NewStyle().Foreground(t.Foreground).Padding(0, 1),
		RowSelected:  lipgloss.NewStyle().Foreground(t.Primary).Background(t.Selection).Padding(0, 1).Bold(true),
		Section:      lipgloss.NewStyle().Foreground(t.Accent).Bold(true).MarginTop(1),
		Panel:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1),
		Modal:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.BorderFocus).Padding(1, 2),
		Input:        lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.Border).Padding(0, 1),
		InputFocused: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(t.BorderFocus).Padding(0, 1),
		Label:        lipgloss.NewStyle().Foreground(t.ForegroundDim).Bold(true),
		Error:        lipgloss.NewStyle().Foreground(t.Error),
		Success:      lipgloss.NewStyle().Foreground(t.Success),
		Warning:      lipgloss.NewStyle().Foreground(t.Warning),
		Help:         lipgloss.NewStyle().Foreground(t.ForegroundDim).MarginTop(1),
		HelpKey:      lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Link:         lipgloss.NewStyle().Foreground(t.Accent).Underline(true),
	}
}

// applyColorProfile honours NO_COLOR and the detected terminal capabilities.
func applyColorProfile() {
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}
