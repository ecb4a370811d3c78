// Package orchestrator ties the planner, graph builder, and execution
// engine into a query-driven pipeline: a user query becomes a plan, the
// plan becomes validated layers, and the layers run against the backend.
// Sessions are serialized with keyed locks so two queries on the same
// conversation never interleave.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/magentic-ai/magentic/internal/config"
	"github.com/magentic-ai/magentic/internal/engine"
	"github.com/magentic-ai/magentic/internal/events"
	"github.com/magentic-ai/magentic/internal/persistence"
	"github.com/magentic-ai/magentic/internal/plan"
	"github.com/magentic-ai/magentic/internal/planner"
	"github.com/magentic-ai/magentic/internal/runner"
)

// DefaultSessionID is used when the caller does not track sessions.
const DefaultSessionID = "default"

// RunResult is the outcome of one ProcessQuery call.
type RunResult struct {
	RunID       string
	Query       string
	FinalAnswer string
	Description string
	Layers      []plan.Layer
	Tasks       []plan.TaskSpec
	Trace       []engine.TraceEvent
	Outputs     map[int]engine.Output
}

// Options wires a System together. Backend is required; everything else
// has a working default.
type Options struct {
	Config   config.Config
	Backend  runner.Backend
	Bus      *events.EventBus   // optional; nil disables events
	Store    persistence.Store  // optional; nil disables run history
	Breakers *runner.BreakerRegistry
}

// System is the top-level orchestrator. One System serves many sessions;
// per-session state lives in the store and the conversation memory.
type System struct {
	cfg      config.Config
	backend  runner.Backend
	planner  *planner.Planner
	bus      *events.EventBus
	store    persistence.Store
	breakers *runner.BreakerRegistry
	locks    *SessionLockManager
	memory   *ConversationMemory
}

// New creates a System. The circuit-breaker registry is shared between
// the planner and every task runner so backend health is tracked in one
// place.
func New(opts Options) (*System, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("orchestrator: backend is required")
	}

	cfg := opts.Config
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = engine.DefaultConcurrency
	}
	if cfg.MaxAgents <= 0 {
		cfg.MaxAgents = planner.DefaultMaxAgents
	}
	if cfg.MaxDepth <= 0 || cfg.MaxDepth > planner.AbsoluteMaxDepth {
		cfg.MaxDepth = planner.AbsoluteMaxDepth
	}
	if len(cfg.TerminalRoles) == 0 {
		cfg.TerminalRoles = plan.DefaultGraphOptions().TerminalRoles
	}

	breakers := opts.Breakers
	if breakers == nil {
		breakers = runner.NewBreakerRegistry()
	}

	return &System{
		cfg:     cfg,
		backend: opts.Backend,
		planner: planner.New(planner.Options{
			Backend:   opts.Backend,
			Breakers:  breakers,
			MaxAgents: cfg.MaxAgents,
		}),
		bus:      opts.Bus,
		store:    opts.Store,
		breakers: breakers,
		locks:    NewSessionLockManager(),
		memory:   NewConversationMemory(),
	}, nil
}

// ProcessQuery runs the full pipeline for one query: complexity analysis,
// planning, graph validation, layered execution, and answer extraction.
// Queries on the same session are serialized; the conversation memory is
// updated with the exchange on success.
func (s *System) ProcessQuery(ctx context.Context, sessionID, query string) (*RunResult, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	maxDepth := planner.AnalyzeComplexity(query)
	if maxDepth > s.cfg.MaxDepth {
		maxDepth = s.cfg.MaxDepth
	}

	runID := uuid.NewString()
	log.Printf("run %s: processing query (session=%s, max depth %d)", runID, sessionID, maxDepth)

	if s.store != nil {
		if err := s.store.SaveRun(ctx, &persistence.Run{
			ID:        runID,
			SessionID: sessionID,
			Query:     query,
			Status:    "running",
			Depth:     maxDepth,
			CreatedAt: time.Now(),
		}); err != nil {
			log.Printf("WARNING: failed to record run %s: %v", runID, err)
		}
	}

	res, err := s.processAtDepth(ctx, query, s.memory.Context(), 0, maxDepth)
	if err != nil {
		s.finishRun(ctx, runID, "failed", "")
		return nil, err
	}
	res.RunID = runID
	res.Query = query

	s.memory.Add("user", query)
	s.memory.Add("assistant", res.FinalAnswer)

	if s.store != nil {
		if serr := s.store.SaveTrace(ctx, runID, res.Trace); serr != nil {
			log.Printf("WARNING: failed to record trace for run %s: %v", runID, serr)
		}
		if serr := s.store.SaveMessage(ctx, sessionID, "user", query); serr != nil {
			log.Printf("WARNING: failed to record user message: %v", serr)
		}
		if serr := s.store.SaveMessage(ctx, sessionID, "assistant", res.FinalAnswer); serr != nil {
			log.Printf("WARNING: failed to record assistant message: %v", serr)
		}
	}
	s.finishRun(ctx, runID, "completed", res.FinalAnswer)

	return res, nil
}

// RestoreSession seeds the in-memory conversation from persisted history,
// letting a restarted process continue an existing session.
func (s *System) RestoreSession(ctx context.Context, sessionID string) error {
	if s.store == nil {
		return nil
	}
	history, err := s.store.GetHistory(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("restore session %s: %w", sessionID, err)
	}
	turns := make([]Turn, 0, len(history))
	for _, h := range history {
		turns = append(turns, Turn{Role: h.Role, Content: h.Content})
	}
	s.memory.Seed(turns)
	return nil
}

// processAtDepth plans and executes one query at the given nesting depth.
// When depth allows, delegate-capable roles get a callback that recurses
// here with depth+1, so a coordinator can spawn a nested plan.
func (s *System) processAtDepth(ctx context.Context, query, history string, depth, maxDepth int) (*RunResult, error) {
	execPlan := s.planner.CreatePlan(ctx, query, history, depth, maxDepth)
	if len(execPlan.Tasks) == 0 {
		return nil, engine.ErrEmptyPlan
	}

	graph := plan.BuildGraphWithOptions(execPlan.Tasks, plan.GraphOptions{
		TerminalRoles: s.cfg.TerminalRoles,
	})
	for i := range execPlan.Tasks {
		execPlan.Tasks[i].DependsOn = graph[i]
	}
	layers := plan.LayersFromGraph(graph, len(execPlan.Tasks))

	if s.bus != nil {
		s.bus.Publish(events.TopicPlan, events.PlanCreatedEvent{
			Description: execPlan.Description,
			Roles:       execPlan.Roles(),
			Layers:      len(layers),
			Depth:       depth,
			Timestamp:   time.Now(),
		})
	}
	log.Printf("depth %d plan: %d tasks in %d layers (%v)", depth, len(execPlan.Tasks), len(layers), execPlan.Roles())

	var delegate runner.DelegateFunc
	if depth+1 <= maxDepth {
		delegate = func(dctx context.Context, subQuery string) (string, error) {
			sub, err := s.processAtDepth(dctx, subQuery, history, depth+1, maxDepth)
			if err != nil {
				return "", err
			}
			return sub.FinalAnswer, nil
		}
	}

	taskRunner := runner.New(runner.Options{
		Backend:     s.backend,
		Breakers:    s.breakers,
		TaskTimeout: time.Duration(s.cfg.TaskTimeoutSeconds) * time.Second,
		Query:       query,
		History:     history,
		Tasks:       execPlan.Tasks,
		Delegate:    delegate,
	})

	result, err := engine.Execute(ctx, execPlan.Tasks, layers, taskRunner, engine.Config{
		Concurrency: s.cfg.Concurrency,
		Bus:         s.bus,
	})
	if err != nil {
		return nil, fmt.Errorf("depth %d execution: %w", depth, err)
	}

	return &RunResult{
		FinalAnswer: finalAnswer(execPlan.Tasks, layers, result),
		Description: execPlan.Description,
		Layers:      layers,
		Tasks:       execPlan.Tasks,
		Trace:       result.Trace,
		Outputs:     result.Outputs,
	}, nil
}

// finalAnswer extracts the user-facing answer: the last task's output when
// it succeeded, otherwise the highest-index successful task in the final
// layer.
func finalAnswer(tasks []plan.TaskSpec, layers []plan.Layer, result *engine.Result) string {
	last := len(tasks) - 1
	if out, ok := result.Final(last); ok && !out.Failed() {
		return out.Text
	}

	final := layers[len(layers)-1]
	for i := len(final) - 1; i >= 0; i-- {
		if out, ok := result.Final(final[i]); ok && !out.Failed() {
			return out.Text
		}
	}
	return ""
}

// ClearSession drops the in-memory conversation context.
func (s *System) ClearSession() {
	s.memory.Clear()
}

func (s *System) finishRun(ctx context.Context, runID, status, answer string) {
	if s.store == nil {
		return
	}
	if err := s.store.FinishRun(ctx, runID, status, answer); err != nil {
		log.Printf("WARNING: failed to finish run %s: %v", runID, err)
	}
}
