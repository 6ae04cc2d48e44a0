// Package style provides shared UI styling primitives including the color
// palette and status icons used across the dashboard renderers.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Indigo = lipgloss.Color("#6366F1")
	Slate  = lipgloss.Color("#64748B")
	White  = lipgloss.Color("#FFFFFF")
	Ink    = lipgloss.Color("#0F172A")
	Green  = lipgloss.Color("#16A34A")
	Red    = lipgloss.Color("#DC2626")
	Amber  = lipgloss.Color("#D97706")
	Smoke  = lipgloss.Color("#94A3B8")
)

// Status icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Spinner = "◐"
	Dot     = "●"
	Circle  = "○"
	Clock   = "◷"
)
