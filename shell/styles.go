package shell

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#A78BFA")
	colorError   = lipgloss.Color("#DC2626")
	colorMuted   = lipgloss.Color("#9CA3AF")
	colorAccent  = lipgloss.Color("#22D3EE")
)

// Styles holds the lipgloss styles used by the shell views.
type Styles struct {
	Title   lipgloss.Style
	Spinner lipgloss.Style
	Splash  lipgloss.Style
	Error   lipgloss.Style
	Crumb   lipgloss.Style
	Link    lipgloss.Style
	Help    lipgloss.Style
	Warning lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Spinner: lipgloss.NewStyle().Foreground(colorPrimary),
		Splash:  lipgloss.NewStyle().Padding(1, 2),
		Error: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Foreground(colorError).
			Padding(0, 1),
		Crumb:   lipgloss.NewStyle().Foreground(colorMuted),
		Link:    lipgloss.NewStyle().Foreground(colorAccent),
		Help:    lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#D97706")),
	}
}
