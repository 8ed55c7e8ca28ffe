package tui

import (
	"fmt"
	"strings"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/store"
)

func (a *App) renderExecutionPanel(width int) string {
	view := a.deps.Execution.View()
	title := headStyle.Render("Execution")
	if view.Execution == nil {
		return strings.Join([]string{title, mutedStyle.Render("Nothing tracked. Press s to start a workflow.")}, "\n")
	}
	exec := view.Execution
	lines := []string{
		title,
		textStyle.Render(truncate(exec.WorkflowName, width)),
		mutedStyle.Render(truncate(exec.ID, width)),
		stateStyle(exec.State).Render(string(exec.State)) + mutedStyle.Render(fmt.Sprintf(" · %d events", len(view.Events))),
	}
	if exec.CostUSD > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("$%.4f · %.1fs", exec.CostUSD, float64(exec.DurationMS)/1000)))
	}
	if msg := exec.ErrorText(); msg != "" {
		lines = append(lines, badStyle.Render(truncate(msg, width)))
	}
	if q := view.PendingQuestion; q != nil {
		lines = append(lines, "", warnStyle.Render("?")+" "+textStyle.Width(max(10, width-2)).Render(q.Text))
		if ctx := strings.TrimSpace(q.Context); ctx != "" {
			lines = append(lines, detailStyle.Render(truncate(ctx, width)))
		}
		if view.IsAnswering {
			lines = append(lines, a.spinner.View()+" sending answer...")
		} else {
			lines = append(lines, mutedStyle.Render("a → answer"))
		}
	}
	if view.IsStopping {
		lines = append(lines, a.spinner.View()+" stopping...")
	}
	if exec.State.IsTerminal() {
		lines = append(lines, mutedStyle.Render("esc → clear"))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderBuilderPanel(width int) string {
	view := a.deps.Session.View()
	lines := []string{headStyle.Render("AI workflow builder") + mutedStyle.Render(" · "+string(view.Phase))}
	switch view.Phase {
	case store.PhaseIdle:
		lines = append(lines, mutedStyle.Render("Press g to describe a workflow goal."))
	case store.PhaseSubmittingGoal:
		lines = append(lines, a.spinner.View()+" starting session...")
	case store.PhaseWaitingForQuestions:
		lines = append(lines, a.spinner.View()+fmt.Sprintf(" waiting for questions (round %d)...", view.RoundsCompleted+1))
	case store.PhaseAnswering:
		lines = append(lines, a.renderRound(view, width)...)
	case store.PhaseSubmittingAnswers:
		lines = append(lines, a.spinner.View()+" submitting answers...")
	case store.PhaseGenerating:
		lines = append(lines, a.spinner.View()+" generating workflow...")
	case store.PhaseCompleted:
		file := view.CreatedWorkflowFile
		if file == "" {
			file = "(unnamed)"
		}
		lines = append(lines, okStyle.Render("✓ created "+truncate(file, width-10)), mutedStyle.Render("esc → start over"))
	case store.PhaseFailed:
		msg := view.Error
		if msg == "" {
			msg = "Session failed"
		}
		lines = append(lines, badStyle.Render(truncate(msg, width)), mutedStyle.Render("esc → start over"))
	}
	if view.Phase.IsActive() && view.Phase != store.PhaseSubmittingGoal {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d round(s) answered · x → stop", view.RoundsCompleted)))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderRound(view store.SessionView, width int) []string {
	round := view.CurrentRound
	if round == nil {
		return nil
	}
	lines := []string{warnStyle.Render(fmt.Sprintf("Round %d", round.RoundNumber))}
	for i, q := range round.Questions {
		cursor := "  "
		if i == a.questionCursor {
			cursor = headStyle.Render("▸") + " "
		}
		label := q.Question
		if q.Header != "" {
			label = q.Header + ": " + label
		}
		lines = append(lines, cursor+textStyle.Render(truncate(label, width-2)))
		answer := view.Answers[i]
		if len(q.Options) == 0 {
			shown := answer
			if shown == "" {
				shown = "(e → type answer)"
			}
			lines = append(lines, "    "+detailStyle.Render(truncate(shown, width-4)))
			continue
		}
		for j, opt := range q.Options {
			mark := "( )"
			if q.MultiSelect {
				mark = "[ ]"
			}
			if optionSelected(q, answer, opt.Label) {
				mark = strings.Replace(mark, " ", "x", 1)
			}
			line := fmt.Sprintf("%s %s", mark, opt.Label)
			if opt.Description != "" {
				line += " · " + opt.Description
			}
			style := textStyle
			if i == a.questionCursor && j == a.optionCursor {
				style = headStyle
			}
			lines = append(lines, "    "+style.Render(truncate(line, width-4)))
		}
	}
	lines = append(lines, mutedStyle.Render("space → pick · e → type · ctrl+s → submit"))
	return lines
}

func optionSelected(q api.StructuredQuestion, answer, label string) bool {
	if !q.MultiSelect {
		return answer == label
	}
	for _, l := range store.SelectedLabels(answer) {
		if l == label {
			return true
		}
	}
	return false
}
