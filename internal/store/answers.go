package store

import (
	"fmt"
	"strings"

	"github.com/kingrea/lattice-monitor/internal/api"
)

// FormatAnswers renders one numbered line per question in round order:
// "1. <answer>\n2. <answer>". Unanswered questions produce an empty answer.
// Multi-select answers are already comma-joined and pass through unchanged.
func FormatAnswers(questions []api.StructuredQuestion, answers map[int]string) string {
	lines := make([]string, len(questions))
	for i := range questions {
		lines[i] = fmt.Sprintf("%d. %s", i+1, answers[i])
	}
	return strings.Join(lines, "\n")
}

// SelectedLabels splits a comma-joined multi-select answer.
func SelectedLabels(answer string) []string {
	if strings.TrimSpace(answer) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(answer, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toggleLabel(answer, label string) string {
	current := SelectedLabels(answer)
	next := make([]string, 0, len(current)+1)
	found := false
	for _, l := range current {
		if l == label {
			found = true
			continue
		}
		next = append(next, l)
	}
	if !found {
		next = append(next, label)
	}
	return strings.Join(next, ",")
}
