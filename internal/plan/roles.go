package plan

import (
	"sort"
	"strings"
)

// RoleDescriptor describes one entry in the closed role enumeration.
// CanDelegate marks roles allowed to spawn a nested sub-plan; NeedsTools
// marks roles that get web search access at the runner boundary.
type RoleDescriptor struct {
	Name         string
	CanDelegate  bool
	NeedsTools   bool
	SystemPrompt string
}

// The role set is closed: the planner must map anything else onto one of
// these tags ("architect" -> planner, "engineer" -> coder, and so on).
var roles = map[string]RoleDescriptor{
	"researcher": {
		Name:         "researcher",
		NeedsTools:   true,
		SystemPrompt: "You are a research specialist. Find accurate, current information and report it concisely with sources.",
	},
	"analyzer": {
		Name:         "analyzer",
		SystemPrompt: "You are an analysis specialist. Break down problems, compare options, and explain clearly.",
	},
	"planner": {
		Name:         "planner",
		CanDelegate:  true,
		SystemPrompt: "You are a planning specialist. Produce concrete, ordered, actionable plans.",
	},
	"writer": {
		Name:         "writer",
		SystemPrompt: "You are a writing specialist. Produce clear, well-structured prose for the intended audience.",
	},
	"coder": {
		Name:         "coder",
		SystemPrompt: "You are a programming specialist. Write correct, idiomatic code with brief explanations.",
	},
	"critic": {
		Name:         "critic",
		SystemPrompt: "You are a critical reviewer. Identify gaps, errors, and improvements in the material you are given.",
	},
	"synthesizer": {
		Name:         "synthesizer",
		SystemPrompt: "You are a synthesis specialist. Combine the outputs you are given into one coherent final answer.",
	},
	"coordinator": {
		Name:         "coordinator",
		CanDelegate:  true,
		SystemPrompt: "You coordinate complex work. Decide whether to answer directly or delegate to specialists.",
	},
}

// RoleOf looks up a role descriptor by tag. Tags are matched
// case-insensitively. The second return is false for undefined roles.
func RoleOf(tag string) (RoleDescriptor, bool) {
	r, ok := roles[strings.ToLower(strings.TrimSpace(tag))]
	return r, ok
}

// RoleNames returns all defined role tags in sorted order.
func RoleNames() []string {
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
