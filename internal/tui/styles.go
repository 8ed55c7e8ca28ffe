package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/office"
)

var (
	colorAccent = lipgloss.Color("#5B8DEF")
	colorBorder = lipgloss.Color("#444444")
	colorMuted  = lipgloss.Color("#888888")
	colorText   = lipgloss.Color("#CCCCCC")
	colorOK     = lipgloss.Color("#4CAF50")
	colorWarn   = lipgloss.Color("#F7B801")
	colorBad    = lipgloss.Color("#FF6B6B")
	colorEnter  = lipgloss.Color("#B388FF")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBad)
	headStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	textStyle   = lipgloss.NewStyle().Foreground(colorText)
	okStyle     = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	badStyle    = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
)

func deskStyle(s office.Status) lipgloss.Style {
	switch s {
	case office.StatusCompleted:
		return okStyle
	case office.StatusFailed:
		return badStyle
	case office.StatusWorking:
		return headStyle
	case office.StatusEntering:
		return lipgloss.NewStyle().Foreground(colorEnter).Bold(true)
	}
	return mutedStyle
}

func stateStyle(s api.ExecutionState) lipgloss.Style {
	switch s {
	case api.StateCompleted:
		return okStyle
	case api.StateFailed:
		return badStyle
	case api.StateStopped, api.StateAwaitingInput:
		return warnStyle
	}
	return headStyle
}
