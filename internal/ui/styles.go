package ui

import "github.com/charmbracelet/lipgloss"

var (
	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	connectingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	methodStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	unreadStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	statusStyle       = lipgloss.NewStyle().Faint(true)
	warnStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	systemLineStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
)
