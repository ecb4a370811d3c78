package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/magentic-ai/magentic/internal/engine"
	"github.com/magentic-ai/magentic/internal/plan"
)

// captureBackend records received prompts and answers from a script.
type captureBackend struct {
	mu       sync.Mutex
	systems  []string
	prompts  []string
	response string
	err      error
}

func (b *captureBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	b.mu.Lock()
	b.systems = append(b.systems, system)
	b.prompts = append(b.prompts, prompt)
	b.mu.Unlock()
	return b.response, b.err
}

func (b *captureBackend) Close() error { return nil }
func (b *captureBackend) Name() string { return "capture" }

func (b *captureBackend) lastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.prompts) == 0 {
		return ""
	}
	return b.prompts[len(b.prompts)-1]
}

func twoStepTasks() []plan.TaskSpec {
	return []plan.TaskSpec{
		{Index: 0, Role: "researcher", Task: "find sources"},
		{Index: 1, Role: "synthesizer", Task: "combine findings", DependsOn: []int{0}},
	}
}

func TestRunRendersDependencyOutputs(t *testing.T) {
	backend := &captureBackend{response: "final answer"}
	tasks := twoStepTasks()
	r := New(Options{
		Backend: backend,
		Query:   "what is the answer?",
		Tasks:   tasks,
	})

	out, err := r.Run(context.Background(), tasks[1], map[int]engine.Output{
		0: {Text: "research findings here"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "final answer" {
		t.Errorf("Run() = %q, want 'final answer'", out)
	}

	prompt := backend.lastPrompt()
	for _, want := range []string{
		"Original question: what is the answer?",
		"From researcher_0:",
		"research findings here",
		"Your task: combine findings",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRunRendersFailedDependency(t *testing.T) {
	backend := &captureBackend{response: "degraded answer"}
	tasks := twoStepTasks()
	r := New(Options{Backend: backend, Query: "q", Tasks: tasks})

	_, err := r.Run(context.Background(), tasks[1], map[int]engine.Output{
		0: {Err: errors.New("model unavailable")},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	prompt := backend.lastPrompt()
	if !strings.Contains(prompt, "[failed: model unavailable]") {
		t.Errorf("prompt missing failure placeholder:\n%s", prompt)
	}
}

func TestRunRendersEmptyDependency(t *testing.T) {
	backend := &captureBackend{response: "ok"}
	tasks := twoStepTasks()
	r := New(Options{Backend: backend, Query: "q", Tasks: tasks})

	_, err := r.Run(context.Background(), tasks[1], map[int]engine.Output{
		0: {Text: "   "},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(backend.lastPrompt(), "(no output from previous agent)") {
		t.Errorf("prompt missing empty-output placeholder:\n%s", backend.lastPrompt())
	}
}

func TestRunIncludesHistory(t *testing.T) {
	backend := &captureBackend{response: "ok"}
	tasks := []plan.TaskSpec{{Index: 0, Role: "analyzer", Task: "answer"}}
	r := New(Options{
		Backend: backend,
		Query:   "follow-up question",
		History: "User: earlier question\nAssistant: earlier answer",
		Tasks:   tasks,
	})

	if _, err := r.Run(context.Background(), tasks[0], nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(backend.lastPrompt(), "earlier question") {
		t.Errorf("prompt missing conversation history:\n%s", backend.lastPrompt())
	}
}

func TestRunUnknownRole(t *testing.T) {
	r := New(Options{Backend: &captureBackend{response: "ok"}})

	_, err := r.Run(context.Background(), plan.TaskSpec{Index: 0, Role: "wizard", Task: "magic"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown role") {
		t.Errorf("Run(wizard) error = %v, want unknown role", err)
	}
}

func TestRunUsesRoleSystemPrompt(t *testing.T) {
	backend := &captureBackend{response: "ok"}
	tasks := []plan.TaskSpec{{Index: 0, Role: "critic", Task: "review this"}}
	r := New(Options{Backend: backend, Query: "q", Tasks: tasks})

	if _, err := r.Run(context.Background(), tasks[0], nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	role, _ := plan.RoleOf("critic")
	if backend.systems[0] != role.SystemPrompt {
		t.Errorf("system prompt = %q, want critic's", backend.systems[0])
	}
}

// delegatingBackend answers the first call with a delegation request and
// every later call with a synthesis.
type delegatingBackend struct {
	mu    sync.Mutex
	calls int
}

func (b *delegatingBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls == 1 {
		return `{"needs_delegation": true, "subtasks": [
			{"role": "researcher", "task": "look up A"},
			{"role": "researcher", "task": "look up B"}
		]}`, nil
	}
	return "synthesized from sub-agents", nil
}

func (b *delegatingBackend) Close() error { return nil }
func (b *delegatingBackend) Name() string { return "delegating" }

func TestRunDelegation(t *testing.T) {
	var delegated []string
	var mu sync.Mutex

	tasks := []plan.TaskSpec{{Index: 0, Role: "coordinator", Task: "handle the request"}}
	r := New(Options{
		Backend: &delegatingBackend{},
		Query:   "complex question",
		Tasks:   tasks,
		Delegate: func(ctx context.Context, query string) (string, error) {
			mu.Lock()
			delegated = append(delegated, query)
			mu.Unlock()
			return "sub-answer for " + query, nil
		},
	})

	out, err := r.Run(context.Background(), tasks[0], nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "synthesized from sub-agents" {
		t.Errorf("Run() = %q, want synthesis output", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delegated) != 2 {
		t.Fatalf("delegated %d sub-tasks, want 2: %v", len(delegated), delegated)
	}
	if delegated[0] != "look up A" || delegated[1] != "look up B" {
		t.Errorf("delegated queries = %v", delegated)
	}
}

func TestRunDelegationDisabledWithoutCallback(t *testing.T) {
	// Same delegation-shaped response, but no Delegate configured: the raw
	// response passes through untouched.
	tasks := []plan.TaskSpec{{Index: 0, Role: "coordinator", Task: "handle it"}}
	r := New(Options{Backend: &delegatingBackend{}, Query: "q", Tasks: tasks})

	out, err := r.Run(context.Background(), tasks[0], nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "needs_delegation") {
		t.Errorf("Run() = %q, want raw response without Delegate", out)
	}
}

func TestRunDelegationIgnoredForPlainRoles(t *testing.T) {
	// A researcher echoing delegation JSON is not allowed to delegate.
	tasks := []plan.TaskSpec{{Index: 0, Role: "researcher", Task: "find"}}
	r := New(Options{
		Backend: &delegatingBackend{},
		Query:   "q",
		Tasks:   tasks,
		Delegate: func(ctx context.Context, query string) (string, error) {
			t.Error("plain role delegated")
			return "", nil
		},
	})

	if _, err := r.Run(context.Background(), tasks[0], nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantOK  bool
	}{
		{name: "bare object", content: `{"a": 1}`, want: `{"a": 1}`, wantOK: true},
		{name: "fenced object", content: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`, wantOK: true},
		{name: "prose around object", content: `Sure! {"a": 1} Hope that helps.`, want: `{"a": 1}`, wantOK: true},
		{name: "no object", content: "plain text", wantOK: false},
		{name: "empty", content: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.content)
			if ok != tt.wantOK {
				t.Fatalf("extractJSONObject() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("extractJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}
