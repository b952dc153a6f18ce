// Copyright 2025 James Ross
package tui

import "github.com/charmbracelet/lipgloss"

var (
	tabActiveStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Dark: "#ffaa00", Light: "#aa5500"}).
			Padding(0, 1)
	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Dark: "#888888", Light: "#444444"}).
				Padding(0, 1)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Dark: "#ffffff", Light: "#000000"}).
			Background(lipgloss.AdaptiveColor{Dark: "#333333", Light: "#dddddd"})
	errStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Dark: "#ff5555", Light: "#cc0000"})
	formBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2)
	helpHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Dark: "#666666", Light: "#999999"})
)
