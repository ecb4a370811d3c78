// Package planner turns a user query into an ExecutionPlan by prompting a
// language model and defensively parsing its response. The engine treats
// the planner as opaque; this package owns all the prompt and parsing
// details.
package planner

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/magentic-ai/magentic/internal/plan"
	"github.com/magentic-ai/magentic/internal/runner"
)

// DefaultMaxAgents caps the number of tasks a single plan may contain.
const DefaultMaxAgents = 12

// Planner creates execution plans via an LLM backend. It is total: any
// planning failure degrades to a fallback plan rather than an error,
// because a query should never die on the planner's inability to emit
// clean JSON.
type Planner struct {
	backend   runner.Backend
	breakers  *runner.BreakerRegistry
	retry     runner.RetryConfig
	maxAgents int
}

// Options configures a Planner.
type Options struct {
	Backend   runner.Backend
	Breakers  *runner.BreakerRegistry // shared with the runner; created if nil
	Retry     runner.RetryConfig
	MaxAgents int
}

// New creates a Planner with defaults filled in.
func New(opts Options) *Planner {
	if opts.Breakers == nil {
		opts.Breakers = runner.NewBreakerRegistry()
	}
	if opts.Retry == (runner.RetryConfig{}) {
		opts.Retry = runner.DefaultRetryConfig()
	}
	if opts.MaxAgents <= 0 {
		opts.MaxAgents = DefaultMaxAgents
	}
	return &Planner{
		backend:   opts.Backend,
		breakers:  opts.Breakers,
		retry:     opts.Retry,
		maxAgents: opts.MaxAgents,
	}
}

// CreatePlan asks the model for a plan, validates every proposed agent
// against the closed role set, and caps the plan size. history may carry
// recent conversation context; depth and maxDepth bound nesting.
func (p *Planner) CreatePlan(ctx context.Context, query, history string, depth, maxDepth int) *plan.ExecutionPlan {
	log.Printf("Creating execution plan (depth %d/%d) for: %s", depth, maxDepth, truncate(query, 100))

	system := coordinatorPrompt(plan.RoleNames(), complexityHint(maxDepth))

	prompt := query
	if history != "" {
		prompt = fmt.Sprintf("CONVERSATION HISTORY:\n%s\n\nCURRENT QUESTION:\n%s", history, query)
	}

	response, err := runner.Complete(ctx, p.backend, p.breakers, p.retry, system, prompt)
	if err != nil {
		log.Printf("ERROR: planning request failed: %v", err)
		return fallbackPlan(query, depth)
	}

	doc, err := parsePlanDocument(response)
	if err != nil {
		log.Printf("ERROR: %v (response: %s)", err, truncate(response, 200))
		return fallbackPlan(query, depth)
	}

	tasks := p.validateAgents(doc.Agents)
	if len(tasks) == 0 {
		log.Printf("ERROR: no valid agents in plan, using fallback")
		return fallbackPlan(query, depth)
	}

	description := doc.Description
	if description == "" {
		description = "Dynamic execution plan"
	}

	created := &plan.ExecutionPlan{
		Description: description,
		Tasks:       tasks,
		Depth:       depth,
	}
	log.Printf("Created plan %q with agents %v", created.Description, created.Roles())
	return created
}

// validateAgents normalizes role tags, rejects undefined roles, and caps
// the task count. Indices are reassigned after rejection so dependency
// references stay positional; out-of-range references left behind by a
// rejection are pruned later by the graph builder.
func (p *Planner) validateAgents(agents []agentSpec) []plan.TaskSpec {
	tasks := make([]plan.TaskSpec, 0, len(agents))
	var invalid []string

	for _, spec := range agents {
		roleName := strings.ToLower(strings.TrimSpace(spec.Role))
		if roleName == "" || strings.TrimSpace(spec.Task) == "" {
			continue
		}
		if _, ok := plan.RoleOf(roleName); !ok {
			invalid = append(invalid, spec.Role)
			continue
		}

		tasks = append(tasks, plan.TaskSpec{
			Index:     len(tasks),
			Role:      roleName,
			Task:      strings.TrimSpace(spec.Task),
			DependsOn: spec.DependsOn,
		})
	}

	if len(invalid) > 0 {
		log.Printf("WARNING: rejected undefined roles %v (valid: %v)", invalid, plan.RoleNames())
	}

	if len(tasks) > p.maxAgents {
		log.Printf("WARNING: plan proposed %d agents, capping at %d", len(tasks), p.maxAgents)
		tasks = tasks[:p.maxAgents]
	}

	return tasks
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
