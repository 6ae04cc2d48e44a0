package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/ui/style"
)

const progressBarWidth = 20

// View renders the dashboard.
//
//nolint:gocritic // hugeParam ignored
func (m *Model) View() string {
	if m.Quitting {
		return ""
	}
	if len(m.Rows) == 0 {
		return "Waiting for sections...\n"
	}

	var s strings.Builder

	s.WriteString(m.header() + "\n\n")
	for _, r := range m.Rows {
		s.WriteString(m.renderRow(r) + "\n")
	}
	s.WriteString("\n" + m.footer() + "\n")

	return s.String()
}

//nolint:gocritic // hugeParam ignored
func (m *Model) header() string {
	title := titleStyle.Render("DASHBOARD")
	if m.Snapshot.HasErrors {
		title = failureTitleStyle.Render("DASHBOARD")
	}
	bar := renderBar(m.Snapshot.OverallProgress)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", bar,
		detailStyle.Render(fmt.Sprintf(" %d%%", m.Snapshot.OverallProgress)))
}

func (m *Model) renderRow(r *row) string {
	icon, lineStyle := stateLook(r.Section)

	name := r.Section.Name
	if name == "" {
		name = r.ID
	}

	var detail string
	switch {
	case r.Section.State == domain.StateLoading:
		detail = fmt.Sprintf("%s %d%%", r.Elapsed.Round(100*time.Millisecond), r.Section.Progress)
	case r.Section.State == domain.StateError:
		detail = r.Section.Err
	case r.Section.Stale:
		detail = style.Clock + " stale since " + r.Section.LastUpdated.Format("15:04:05")
	case r.Section.State == domain.StateLoaded:
		detail = "updated " + r.Section.LastUpdated.Format("15:04:05")
	}

	line := fmt.Sprintf("  %s %-24s", icon, name)
	if r.Section.Stale && r.Section.State == domain.StateLoaded {
		lineStyle = staleStyle
	}
	out := lineStyle.Render(line)
	if detail != "" {
		out += " " + detailStyle.Render(detail)
	}
	return out
}

//nolint:gocritic // hugeParam ignored
func (m *Model) footer() string {
	return helpStyle.Render("r refresh all · q quit")
}

func stateLook(s domain.Section) (string, lipgloss.Style) {
	switch s.State {
	case domain.StateLoading:
		return style.Spinner, loadingStyle
	case domain.StateLoaded:
		return style.Check, loadedStyle
	case domain.StateError:
		return style.Cross, errorStyle
	default:
		return style.Circle, idleStyle
	}
}

// renderBar draws a fixed-width progress bar for the overall percentage.
func renderBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * progressBarWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	return loadingStyle.Render(bar)
}
