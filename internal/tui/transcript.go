package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/lattice-monitor/internal/api"
)

const toolInputWidth = 60

func renderTranscript(events []api.CLIEvent, width int) string {
	if len(events) == 0 {
		return mutedStyle.Render("No transcript yet.")
	}
	wrap := lipgloss.NewStyle().Width(max(20, width))
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		if line := renderEvent(ev); line != "" {
			lines = append(lines, wrap.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func renderEvent(ev api.CLIEvent) string {
	text := strings.TrimSpace(ev.Content.Text)
	switch ev.EventType {
	case api.EventToolUse:
		parts := make([]string, 0, len(ev.Content.Tools))
		for _, tool := range ev.Content.Tools {
			part := tool.Name
			if input := truncate(tool.Input, toolInputWidth); input != "" {
				part += " " + mutedStyle.Render(input)
			}
			parts = append(parts, part)
		}
		return headStyle.Render("⚙") + " " + strings.Join(parts, ", ")
	case api.EventToolResult:
		return mutedStyle.Render("↳ " + truncate(text, toolInputWidth*2))
	case api.EventResult:
		line := okStyle.Render("✓ result")
		if ev.Content.CostUSD != nil {
			line += mutedStyle.Render(fmt.Sprintf(" $%.4f", *ev.Content.CostUSD))
		}
		if ev.Content.DurationMS != nil {
			line += mutedStyle.Render(fmt.Sprintf(" %.1fs", float64(*ev.Content.DurationMS)/1000))
		}
		if text != "" {
			line += "\n" + textStyle.Render(text)
		}
		return line
	case api.EventStderr:
		return badStyle.Render("!") + " " + text
	case api.EventSystemSummary:
		return detailStyle.Render("· " + text)
	case api.EventUser:
		return warnStyle.Render("›") + " " + text
	case api.EventStream:
		return ""
	}
	if text == "" {
		return ""
	}
	if ev.Role != "" && ev.Role != "assistant" {
		return mutedStyle.Render(ev.Role+": ") + text
	}
	return textStyle.Render(text)
}
