package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the review queue.
type Theme struct {
	Title    lipgloss.Style
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Box      lipgloss.Style
}

// DefaultTheme is the default theme.
func DefaultTheme() Theme {
	return Theme{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5FAFD7")).
			MarginBottom(1),
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fafafa")),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1a1a1a")).
			Background(lipgloss.Color("#5FAFD7")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#737373")),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10b981")),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f59e0b")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#404040")).
			Padding(0, 1),
	}
}
