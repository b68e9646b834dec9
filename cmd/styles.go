package cmd

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorError   = lipgloss.Color("#EF4444")
)

var (
	// HeaderStyle renders table headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	// MutedStyle renders footers and secondary values.
	MutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	// ErrorStyle renders the error prefix on exit.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorError)

	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(colorMuted)
)
