package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Header styles
	Duration lipgloss.Style
	Targets  lipgloss.Style
	Label    lipgloss.Style

	// Detected stat styles
	Offensive lipgloss.Style
	Defensive lipgloss.Style
	Other     lipgloss.Style

	// Footer style
	Footer lipgloss.Style

	// Event styles
	Muted   lipgloss.Style
	Attempt lipgloss.Style
	Match   lipgloss.Style
	Run     lipgloss.Style
	Error   lipgloss.Style

	// Status colors
	StatusIdle     lipgloss.Style
	StatusRunning  lipgloss.Style
	StatusStopping lipgloss.Style
	StatusMatched  lipgloss.Style
	StatusStopped  lipgloss.Style
}{
	// Layout styles
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	// Header styles
	Duration: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	Targets: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),

	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Detected stat styles
	Offensive: lipgloss.NewStyle().
		Foreground(lipgloss.Color("209")),

	Defensive: lipgloss.NewStyle().
		Foreground(lipgloss.Color("75")),

	Other: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	// Footer style
	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Event styles
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Attempt: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	Match: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	Run: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	// Status colors
	StatusIdle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	StatusRunning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	StatusStopping: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	StatusMatched: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	StatusStopped: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),
}
