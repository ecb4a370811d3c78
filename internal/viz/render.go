// Package viz renders plans and execution results as styled terminal
// text. Output is plain strings; callers decide where they go.
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/magentic-ai/magentic/internal/engine"
	"github.com/magentic-ai/magentic/internal/plan"
)

const taskPreviewLen = 60

// RenderPlan shows the layered structure of a plan before execution:
// every layer with its tasks, roles, and dependencies.
func RenderPlan(description string, tasks []plan.TaskSpec, layers []plan.Layer) string {
	var b strings.Builder

	title := styleTitle.Render("Execution Plan")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n")
	if description != "" {
		b.WriteString(styleDim.Render(description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for layerNum, layer := range layers {
		b.WriteString(fmt.Sprintf("Layer %d", layerNum+1))
		if len(layer) > 1 {
			b.WriteString(styleDim.Render(fmt.Sprintf("  (%d tasks in parallel)", len(layer))))
		}
		b.WriteString("\n")
		for _, index := range layer {
			t := tasks[index]
			b.WriteString(fmt.Sprintf("  [%d] %s  %s\n", index, styleRole.Render(t.Role), preview(t.Task)))
			if len(t.DependsOn) > 0 {
				b.WriteString(styleDim.Render(fmt.Sprintf("      depends on %s", formatDeps(t.DependsOn))))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// RenderSummary shows the outcome of a finished run: per-task status and
// timing plus an aggregate progress bar.
func RenderSummary(trace []engine.TraceEvent) string {
	var b strings.Builder

	title := styleTitle.Render("Run Summary")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	completed, failed := 0, 0
	lastLayer := -1
	for _, ev := range trace {
		if ev.Layer != lastLayer {
			b.WriteString(fmt.Sprintf("Layer %d\n", ev.Layer+1))
			lastLayer = ev.Layer
		}

		var status string
		if ev.Status == engine.StatusFailed {
			failed++
			status = styleFailed.Render("failed")
		} else {
			completed++
			status = styleCompleted.Render("ok")
		}
		b.WriteString(fmt.Sprintf("  [%d] %-12s %-8s %s\n", ev.Index, ev.Role, status, ev.Duration().Round(timeUnit(ev))))
		if ev.Err != nil {
			b.WriteString(styleFailed.Render(fmt.Sprintf("      %v", ev.Err)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(renderBar(completed, failed, len(trace)))
	b.WriteString("\n")

	return b.String()
}

// renderBar draws a fixed-width progress bar segmented by outcome.
func renderBar(completed, failed, total int) string {
	const width = 40
	if total == 0 {
		return stylePending.Render("(no tasks ran)")
	}

	okWidth := (completed * width) / total
	failWidth := (failed * width) / total
	restWidth := width - okWidth - failWidth

	bar := styleCompleted.Render(strings.Repeat("=", maxInt(0, okWidth)))
	bar += styleFailed.Render(strings.Repeat("!", maxInt(0, failWidth)))
	bar += stylePending.Render(strings.Repeat(".", maxInt(0, restWidth)))

	return fmt.Sprintf("[%s]  %d/%d completed, %d failed", bar, completed, total, failed)
}

func formatDeps(deps []int) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = fmt.Sprintf("[%d]", d)
	}
	return strings.Join(parts, " ")
}

func preview(task string) string {
	task = strings.TrimSpace(task)
	if len(task) <= taskPreviewLen {
		return task
	}
	return task[:taskPreviewLen] + "..."
}

// timeUnit picks a sensible rounding for a trace event's duration.
func timeUnit(ev engine.TraceEvent) time.Duration {
	if ev.Duration() >= time.Second {
		return 10 * time.Millisecond
	}
	return time.Millisecond
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
