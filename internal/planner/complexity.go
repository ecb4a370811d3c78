package planner

import (
	"strings"
)

// AbsoluteMaxDepth is the safety ceiling on nested sub-planning.
const AbsoluteMaxDepth = 5

var multiStepWords = []string{
	"plan", "design", "create", "build", "develop", "comprehensive",
	"complete", "detailed", "step-by-step", "workflow", "process",
	"strategy", "roadmap", "architecture", "system",
}

var analysisWords = []string{
	"compare", "analyze", "evaluate", "assess", "review",
	"investigate", "research", "study", "examine",
}

// AnalyzeComplexity scores a query's complexity and maps it to a maximum
// nesting depth in [1, AbsoluteMaxDepth]. Keyword heuristics only; the
// planner's own agent-count judgment does the fine-grained work.
func AnalyzeComplexity(query string) int {
	lower := strings.ToLower(query)
	score := 0.0

	for _, word := range multiStepWords {
		if strings.Contains(lower, word) {
			score += 2
		}
	}
	for _, word := range analysisWords {
		if strings.Contains(lower, word) {
			score += 1.5
		}
	}

	// Conjunctions suggest multiple domains.
	if parts := strings.Split(lower, " and "); len(parts) > 1 {
		score += float64(len(parts) - 1)
	}

	words := len(strings.Fields(query))
	switch {
	case words > 20:
		score += 2
	case words > 10:
		score++
	}

	if marks := strings.Count(query, "?"); marks > 1 {
		score += float64(marks)
	}

	switch {
	case score >= 8:
		return AbsoluteMaxDepth
	case score >= 5:
		return 4
	case score >= 3:
		return 3
	case score >= 1:
		return 2
	default:
		return 1
	}
}
