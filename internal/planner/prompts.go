package planner

import (
	"fmt"
	"strings"
)

// coordinatorPrompt renders the planning system prompt: the closed role
// list, the complexity hint derived from the depth budget, and the strict
// JSON output contract.
func coordinatorPrompt(roleNames []string, complexityHint string) string {
	roles := strings.Join(roleNames, ", ")
	return fmt.Sprintf(`You are a meta-coordinator creating an execution plan with parallel execution support.

COMPLEXITY LEVEL: %s

You MUST use ONLY these exact role names (case-insensitive): %s
Do NOT invent new roles. If you need an "architect" use "planner"; an "engineer" use "coder".

You MUST respond with ONLY a valid JSON object. No text before or after.
Required JSON format:
{
  "description": "brief plan description",
  "agents": [
    {"role": "ROLE_NAME", "task": "specific task", "depends_on": []}
  ]
}

Rules:
- Match agent count to complexity: simple factual questions get 1 agent, typical tasks 2-4, genuinely complex ones 6+.
- Each agent gets ONE specific focused task.
- Use "researcher" only if current/web information is needed.
- The last agent should be "synthesizer" only when combining multiple outputs.

Parallelization:
- "depends_on" lists the agent indices that must complete first; [] means the agent runs immediately.
- Give independent tasks empty depends_on so they run in parallel.
- Sequential dependencies form a chain: each agent depends on the previous one.

Example:
"Plan a 3-day trip to Paris" -> {"description": "Travel planning", "agents": [
  {"role": "researcher", "task": "Research Paris attractions and hotels", "depends_on": []},
  {"role": "planner", "task": "Create detailed 3-day itinerary", "depends_on": [0]},
  {"role": "synthesizer", "task": "Compile final travel guide", "depends_on": [1]}
]}

Output ONLY the JSON object.`, complexityHint, roles)
}

// complexityHint maps the remaining depth budget to planning guidance,
// mirroring how deeper budgets invite broader plans.
func complexityHint(maxDepth int) string {
	switch {
	case maxDepth >= 5:
		return "VERY COMPLEX - Use 8-12 agents OR delegate"
	case maxDepth >= 4:
		return "COMPLEX - Use 6-8 agents"
	case maxDepth >= 3:
		return "MODERATE - Use 4-6 agents"
	case maxDepth >= 2:
		return "SIMPLE - Use 2-4 agents"
	default:
		return "Very simple - 1-2 agents"
	}
}
