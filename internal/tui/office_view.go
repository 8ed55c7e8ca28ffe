package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/office"
)

const deskWidth = 32

func renderOffice(board office.Board, status string, width int) string {
	name := board.Workflow
	if name == "" {
		name = "No workflow loaded"
	}
	title := headStyle.Render(truncate(name, max(10, width-24)))
	if board.Status != "" {
		title += "  " + mutedStyle.Render(string(board.Status))
	}
	if board.DoorOpen {
		title += "  " + lipgloss.NewStyle().Foreground(colorEnter).Render("▯ door open")
	}
	lines := []string{title}
	if status != "" {
		lines = append(lines, warnStyle.Render("⚠ "+status))
	}
	if len(board.Agents) == 0 {
		lines = append(lines, mutedStyle.Render("The office is empty."))
		return strings.Join(lines, "\n")
	}

	perRow := max(1, width/(deskWidth+1))
	var rows []string
	for start := 0; start < len(board.Agents); start += perRow {
		end := min(start+perRow, len(board.Agents))
		desks := make([]string, 0, end-start)
		for _, agent := range board.Agents[start:end] {
			desks = append(desks, renderDesk(agent))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, desks...))
	}
	lines = append(lines, rows...)
	return strings.Join(lines, "\n")
}

func renderDesk(agent office.Agent) string {
	style := deskStyle(agent.Status)
	inner := deskWidth - 4
	achieved := 0
	for _, kr := range agent.KeyResults {
		if kr.Status == api.KeyResultAchieved {
			achieved++
		}
	}
	body := []string{
		style.Render(truncate(agent.Name, inner)),
		mutedStyle.Render(fmt.Sprintf("desk %d · %s", agent.DeskIndex+1, agent.Status)),
		textStyle.Width(inner).Render("“" + agent.Balloon + "”"),
	}
	if len(agent.KeyResults) > 0 {
		body = append(body, detailStyle.Render(fmt.Sprintf("KRs %d/%d", achieved, len(agent.KeyResults))))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.GetForeground()).
		Padding(0, 1).
		Width(deskWidth - 2).
		Render(strings.Join(body, "\n"))
}

// truncate shortens s to width terminal cells on a single line.
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
