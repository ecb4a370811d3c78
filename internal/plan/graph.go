package plan

import (
	"log"
	"sort"

	"github.com/gammazero/toposort"
)

// Graph is the validated adjacency view of a plan: each task index maps to
// its sorted set of prerequisite indices. Guaranteed acyclic.
type Graph map[int][]int

// GraphOptions controls the validation policy.
type GraphOptions struct {
	// TerminalRoles are the aggregation roles that receive auto-injected
	// dependencies on every producer when the planner leaves them with an
	// empty depends_on set.
	TerminalRoles []string
}

// DefaultGraphOptions returns the policy used when none is supplied:
// synthesizer and writer are treated as terminal aggregation roles.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{TerminalRoles: []string{"synthesizer", "writer"}}
}

// BuildGraph validates and auto-corrects a task list into an acyclic
// adjacency map using the default policy. It is total: every malformed
// input degrades to a well-defined graph rather than an error, because the
// planner is an LLM and cannot be trusted to produce structurally perfect
// output.
func BuildGraph(tasks []TaskSpec) Graph {
	return BuildGraphWithOptions(tasks, DefaultGraphOptions())
}

// BuildGraphWithOptions applies the validation rules in order:
// range pruning, self-dependency pruning, terminal-role dependency
// injection, then cycle detection with a sequential fallback.
func BuildGraphWithOptions(tasks []TaskSpec, opts GraphOptions) Graph {
	n := len(tasks)
	graph := make(Graph, n)

	terminal := make(map[string]bool, len(opts.TerminalRoles))
	for _, role := range opts.TerminalRoles {
		terminal[role] = true
	}

	for i, task := range tasks {
		deps := pruneDeps(i, n, task.DependsOn)
		graph[i] = deps
	}

	injectTerminalDeps(tasks, graph, terminal)

	if hasCycle(graph, n) {
		log.Printf("WARNING: dependency cycle detected, falling back to sequential execution")
		return sequentialGraph(n)
	}

	for i := range graph {
		sort.Ints(graph[i])
	}
	return graph
}

// pruneDeps drops out-of-range references, self-references, and duplicates.
func pruneDeps(index, n int, deps []int) []int {
	pruned := make([]int, 0, len(deps))
	seen := make(map[int]bool, len(deps))
	for _, d := range deps {
		if d < 0 || d >= n {
			log.Printf("WARNING: task %d depends on out-of-range task %d, dropping", index, d)
			continue
		}
		if d == index {
			log.Printf("WARNING: task %d depends on itself, dropping", index)
			continue
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		pruned = append(pruned, d)
	}
	return pruned
}

// injectTerminalDeps makes a terminal-role task with no surviving
// dependencies wait for every producer in the plan. Without this the
// planner occasionally schedules a synthesizer in parallel with the very
// outputs it is meant to combine.
func injectTerminalDeps(tasks []TaskSpec, graph Graph, terminal map[string]bool) {
	for i, task := range tasks {
		if !terminal[task.Role] || len(graph[i]) > 0 || len(tasks) == 1 {
			continue
		}

		producers := make([]int, 0, len(tasks)-1)
		for j, other := range tasks {
			if j != i && !terminal[other.Role] {
				producers = append(producers, j)
			}
		}
		if len(producers) == 0 {
			// Plan of terminal roles only; wait for everything earlier.
			for j := 0; j < i; j++ {
				producers = append(producers, j)
			}
		}
		if len(producers) > 0 {
			graph[i] = producers
			log.Printf("WARNING: %s task %d had no dependencies, auto-assigned %v", task.Role, i, producers)
		}
	}
}

// hasCycle runs a topological sort over the pruned edge set and reports
// whether it failed or lost tasks.
func hasCycle(graph Graph, n int) bool {
	edges := make([]toposort.Edge, 0, n)
	for i := 0; i < n; i++ {
		deps := graph[i]
		if len(deps) == 0 {
			// Edge from nil keeps dependency-free tasks in the sort.
			edges = append(edges, toposort.Edge{nil, i})
			continue
		}
		for _, d := range deps {
			edges = append(edges, toposort.Edge{d, i})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return true
	}

	placed := 0
	for _, v := range sorted {
		if v != nil {
			placed++
		}
	}
	return placed != n
}

// sequentialGraph is the degraded order used when validation finds a
// cycle: task i depends on task i-1. Termination and a well-defined order
// beat failing the whole query.
func sequentialGraph(n int) Graph {
	graph := make(Graph, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			graph[i] = []int{}
		} else {
			graph[i] = []int{i - 1}
		}
	}
	return graph
}
