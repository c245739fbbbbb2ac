package ui

import "github.com/charmbracelet/lipgloss"

// Theme agrupa los estilos del chat para modo claro u oscuro.
type Theme struct {
	Dark      bool
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Input     lipgloss.Style
}

func NewTheme(dark bool) Theme {
	userColor, assistantColor, errorColor, mutedColor, border := "25", "235", "160", "240", "250"
	if dark {
		userColor, assistantColor, errorColor, mutedColor, border = "39", "252", "203", "244", "238"
	}
	return Theme{
		Dark:      dark,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(userColor)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(userColor)),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color(assistantColor)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(errorColor)),
		Muted:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(mutedColor)),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(border)).
			Padding(0, 1),
	}
}
