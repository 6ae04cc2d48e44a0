package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.leadline.dev/loadstate/internal/ui/style"
)

var (
	idleStyle = lipgloss.NewStyle().
			Foreground(style.Slate)

	loadingStyle = lipgloss.NewStyle().
			Foreground(style.Indigo).
			Bold(true)

	loadedStyle = lipgloss.NewStyle().
			Foreground(style.Green)

	errorStyle = lipgloss.NewStyle().
			Foreground(style.Red)

	staleStyle = lipgloss.NewStyle().
			Foreground(style.Amber)

	detailStyle = lipgloss.NewStyle().
			Foreground(style.Smoke)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Indigo).
			Foreground(style.White)

	failureTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Padding(0, 1).
				Background(style.Red).
				Foreground(style.White)

	helpStyle = lipgloss.NewStyle().
			Foreground(style.Smoke).
			Faint(true)
)
