package viz

import (
	"github.com/charmbracelet/lipgloss"
)

// Status styles
var (
	styleCompleted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Bold(true)

	styleFailed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)

	stylePending = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Element styles
var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	styleRole = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	styleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
