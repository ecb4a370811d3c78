package planner

import (
	"strings"

	"github.com/magentic-ai/magentic/internal/plan"
)

var timeSensitiveWords = []string{
	"current", "latest", "today", "news", "weather", "2025", "2026", "now",
}

// fallbackPlan is used when the planner's response cannot be parsed or
// contains no valid agents. The query still gets answered, just without a
// tailored plan.
func fallbackPlan(query string, depth int) *plan.ExecutionPlan {
	lower := strings.ToLower(query)
	needsWeb := false
	for _, word := range timeSensitiveWords {
		if strings.Contains(lower, word) {
			needsWeb = true
			break
		}
	}

	var tasks []plan.TaskSpec
	if needsWeb {
		tasks = []plan.TaskSpec{
			{Index: 0, Role: "researcher", Task: "Search for current information relevant to the question"},
			{Index: 1, Role: "synthesizer", Task: "Create the final answer from the research", DependsOn: []int{0}},
		}
	} else {
		tasks = []plan.TaskSpec{
			{Index: 0, Role: "analyzer", Task: "Answer the question directly"},
		}
	}

	return &plan.ExecutionPlan{
		Description: "Fallback plan",
		Tasks:       tasks,
		Depth:       depth,
	}
}
