package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/magentic-ai/magentic/internal/engine"
	"github.com/magentic-ai/magentic/internal/plan"
)

// DefaultTaskTimeout bounds a single task invocation, retries included.
const DefaultTaskTimeout = 5 * time.Minute

// DelegateFunc recursively processes a sub-query on behalf of a
// delegate-capable role. Supplied by the orchestrator, which enforces the
// depth ceiling before handing one out.
type DelegateFunc func(ctx context.Context, query string) (string, error)

// Options configures an AgentRunner for one plan execution.
type Options struct {
	Backend     Backend
	Breakers    *BreakerRegistry // shared across plans; created if nil
	Retry       RetryConfig
	TaskTimeout time.Duration
	Query       string          // the original user query
	History     string          // rendered conversation context, may be empty
	Tasks       []plan.TaskSpec // full plan, used to label dependency outputs by role
	Delegate    DelegateFunc    // nil disables delegation
}

// AgentRunner executes one task: it renders the outputs of the task's
// dependencies into a prompt, invokes the backend through the resilience
// layer, and handles delegation requests from delegate-capable roles.
// It implements engine.Runner.
type AgentRunner struct {
	opts Options
}

// New creates an AgentRunner with defaults filled in.
func New(opts Options) *AgentRunner {
	if opts.Breakers == nil {
		opts.Breakers = NewBreakerRegistry()
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	return &AgentRunner{opts: opts}
}

// delegationRequest is the JSON shape a delegate-capable role returns when
// it wants the work split into sub-tasks.
type delegationRequest struct {
	NeedsDelegation bool `json:"needs_delegation"`
	Subtasks        []struct {
		Role string `json:"role"`
		Task string `json:"task"`
	} `json:"subtasks"`
}

// Run implements engine.Runner. A timeout here surfaces to the engine as
// an ordinary failure marker, never a crash.
func (r *AgentRunner) Run(ctx context.Context, task plan.TaskSpec, resultsSoFar map[int]engine.Output) (string, error) {
	role, ok := plan.RoleOf(task.Role)
	if !ok {
		return "", fmt.Errorf("unknown role %q", task.Role)
	}

	canDelegate := role.CanDelegate && r.opts.Delegate != nil
	prompt := r.buildPrompt(task, resultsSoFar, canDelegate)

	tctx, cancel := context.WithTimeout(ctx, r.opts.TaskTimeout)
	defer cancel()

	cb := r.opts.Breakers.Get(r.opts.Backend.Name())
	out, err := completeWithRetry(tctx, r.opts.Backend, role.SystemPrompt, prompt, cb, r.opts.Retry)
	if err != nil {
		return "", fmt.Errorf("%s task %d: %w", task.Role, task.Index, err)
	}

	if canDelegate {
		if answer, delegated, derr := r.maybeDelegate(tctx, role, task, out); derr != nil {
			return "", derr
		} else if delegated {
			return answer, nil
		}
	}

	return out, nil
}

// buildPrompt assembles the agent's context: the original question, recent
// conversation history, and the output of every dependency. Failed or
// empty dependencies become explicit placeholders so downstream roles can
// degrade instead of silently hallucinating.
func (r *AgentRunner) buildPrompt(task plan.TaskSpec, resultsSoFar map[int]engine.Output, canDelegate bool) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Original question: %s", r.opts.Query))

	if r.opts.History != "" {
		parts = append(parts, "Conversation history (recent):\n"+r.opts.History)
	}

	if len(task.DependsOn) > 0 {
		var deps []string
		for _, depIdx := range task.DependsOn {
			label := fmt.Sprintf("task_%d", depIdx)
			if depIdx >= 0 && depIdx < len(r.opts.Tasks) {
				label = fmt.Sprintf("%s_%d", r.opts.Tasks[depIdx].Role, depIdx)
			}
			out, ok := resultsSoFar[depIdx]
			switch {
			case !ok:
				log.Printf("WARNING: task %d dependency %d has no recorded output", task.Index, depIdx)
				deps = append(deps, fmt.Sprintf("From %s:\n(no output from previous agent)", label))
			case out.Failed():
				deps = append(deps, fmt.Sprintf("From %s:\n[failed: %v]", label, out.Err))
			case strings.TrimSpace(out.Text) == "":
				deps = append(deps, fmt.Sprintf("From %s:\n(no output from previous agent)", label))
			default:
				deps = append(deps, fmt.Sprintf("From %s:\n%s", label, strings.TrimSpace(out.Text)))
			}
		}
		parts = append(parts, "Previous agent outputs:\n"+strings.Join(deps, "\n\n"))
	}

	parts = append(parts, fmt.Sprintf("Your task: %s", task.Task))

	if canDelegate {
		parts = append(parts, delegationInstructions)
	}

	return strings.Join(parts, "\n\n")
}

const delegationInstructions = `You may delegate this work to specialized sub-agents.
If delegation would help, respond with ONLY this JSON:
{"needs_delegation": true, "subtasks": [{"role": "role_name", "task": "specific task"}]}
Otherwise, complete the task directly and respond with your normal output (not JSON).`

// maybeDelegate inspects the response for a delegation request. When one
// is present, each sub-task runs as a nested plan via the Delegate
// callback and the backend synthesizes the combined result.
func (r *AgentRunner) maybeDelegate(ctx context.Context, role plan.RoleDescriptor, task plan.TaskSpec, response string) (string, bool, error) {
	payload, ok := extractJSONObject(response)
	if !ok {
		return "", false, nil
	}

	var req delegationRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || !req.NeedsDelegation || len(req.Subtasks) == 0 {
		return "", false, nil
	}

	log.Printf("%s task %d delegating to %d sub-agents", task.Role, task.Index, len(req.Subtasks))

	var results []string
	for _, sub := range req.Subtasks {
		if sub.Role == "" || sub.Task == "" {
			continue
		}
		answer, err := r.opts.Delegate(ctx, sub.Task)
		if err != nil {
			log.Printf("WARNING: delegated sub-task %q failed: %v", sub.Task, err)
			answer = fmt.Sprintf("[failed: %v]", err)
		}
		results = append(results, fmt.Sprintf("%s: %s", sub.Role, answer))
	}
	if len(results) == 0 {
		return "", false, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Original task: %s\n\nSub-agent results:\n", task.Task)
	for i, res := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, res)
	}
	sb.WriteString("\nCombine these results to complete your original task.")

	cb := r.opts.Breakers.Get(r.opts.Backend.Name())
	combined, err := completeWithRetry(ctx, r.opts.Backend, role.SystemPrompt, sb.String(), cb, r.opts.Retry)
	if err != nil {
		return "", false, fmt.Errorf("%s task %d synthesis after delegation: %w", task.Role, task.Index, err)
	}
	return combined, true, nil
}

// extractJSONObject returns the outermost {...} span of a response, which
// models routinely wrap in prose or code fences.
func extractJSONObject(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}
