// Package engine runs validated execution layers against a task runner
// with bounded concurrency, hard barriers between layers, and per-task
// failure isolation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magentic-ai/magentic/internal/events"
	"github.com/magentic-ai/magentic/internal/plan"
)

// DefaultConcurrency bounds simultaneous runner invocations within a
// layer. Each in-flight task may hold a model-inference session, so
// unconstrained fan-out risks resource exhaustion.
const DefaultConcurrency = 3

var (
	// ErrEmptyPlan is returned when the plan has no tasks to execute.
	ErrEmptyPlan = errors.New("execution plan has no tasks")

	// ErrPlanFailed is returned when every task in the final layer failed.
	// Individual task failures are otherwise non-fatal to the plan.
	ErrPlanFailed = errors.New("all terminal tasks failed")
)

// Runner is the external capability that performs the actual work for one
// task. It receives the accumulated outputs of all earlier layers and is
// responsible for rendering the dependencies listed in its own DependsOn
// into whatever context it needs. It must not panic across this boundary;
// panics are converted into failure markers.
type Runner interface {
	Run(ctx context.Context, task plan.TaskSpec, resultsSoFar map[int]Output) (string, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, task plan.TaskSpec, resultsSoFar map[int]Output) (string, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, task plan.TaskSpec, resultsSoFar map[int]Output) (string, error) {
	return f(ctx, task, resultsSoFar)
}

// Config tunes a single plan execution. The zero value gets defaults.
type Config struct {
	Concurrency int              // Max concurrent runner invocations per layer (default 3)
	Bus         *events.EventBus // Optional; nil disables event publishing
}

// Execute walks the layers in order, running each layer's tasks
// concurrently (bounded by cfg.Concurrency) and waiting for the whole
// layer to resolve before advancing. Cancellation is cooperative: the
// context is checked between layers, and an in-flight layer resolves
// before the signal takes effect.
//
// A failed task is recorded as a failure marker and never aborts its
// siblings. The plan fails only if it is empty or every task in the final
// layer failed; in that case the partial result is still returned for
// diagnosis.
func Execute(ctx context.Context, tasks []plan.TaskSpec, layers []plan.Layer, r Runner, cfg Config) (*Result, error) {
	if len(tasks) == 0 || len(layers) == 0 {
		return nil, ErrEmptyPlan
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	e := &executor{
		tasks:   tasks,
		runner:  r,
		cfg:     cfg,
		outputs: make(map[int]Output, len(tasks)),
		layers:  len(layers),
	}

	for layerNum, layer := range layers {
		if err := ctx.Err(); err != nil {
			return e.result(), err
		}

		// Outputs from earlier layers are stable; one snapshot serves
		// every task in the layer without further locking.
		snapshot := e.snapshot()

		if len(layer) == 1 {
			// Single-task layer bypasses pool overhead.
			e.runTask(ctx, layer[0], layerNum, snapshot)
		} else {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(cfg.Concurrency)
			for _, index := range layer {
				index := index
				g.Go(func() error {
					e.runTask(gctx, index, layerNum, snapshot)
					return nil
				})
			}
			// Barrier: every task in the layer reaches a terminal state
			// before the next layer starts.
			_ = g.Wait()
		}

		e.publishLayerCompleted(layerNum, layer)
	}

	res := e.result()
	if allFailed(res, layers[len(layers)-1]) {
		return res, fmt.Errorf("plan execution: %w", ErrPlanFailed)
	}
	return res, nil
}

type executor struct {
	tasks  []plan.TaskSpec
	runner Runner
	cfg    Config
	layers int

	mu      sync.Mutex
	outputs map[int]Output
	trace   []TraceEvent
	failed  int
}

// runTask invokes the runner for one task and records its terminal state.
func (e *executor) runTask(ctx context.Context, index, layer int, resultsSoFar map[int]Output) {
	task := e.tasks[index]
	start := time.Now()

	e.publish(events.TopicTask, events.TaskStartedEvent{
		Index:     index,
		Role:      task.Role,
		Task:      task.Task,
		Layer:     layer,
		Timestamp: start,
	})

	text, err := e.invoke(ctx, task, resultsSoFar)
	end := time.Now()

	ev := TraceEvent{
		Index:     index,
		Role:      task.Role,
		Task:      task.Task,
		Layer:     layer,
		StartTime: start,
		EndTime:   end,
	}

	e.mu.Lock()
	if err != nil {
		ev.Status = StatusFailed
		ev.Err = err
		e.outputs[index] = Output{Err: err}
		e.failed++
	} else {
		ev.Status = StatusCompleted
		e.outputs[index] = Output{Text: text}
	}
	e.trace = append(e.trace, ev)
	resolved := len(e.outputs)
	failed := e.failed
	e.mu.Unlock()

	if err != nil {
		e.publish(events.TopicTask, events.TaskFailedEvent{
			Index:     index,
			Role:      task.Role,
			Layer:     layer,
			Err:       err,
			Duration:  end.Sub(start),
			Timestamp: end,
		})
	} else {
		e.publish(events.TopicTask, events.TaskCompletedEvent{
			Index:     index,
			Role:      task.Role,
			Layer:     layer,
			Output:    text,
			Duration:  end.Sub(start),
			Timestamp: end,
		})
	}

	e.publish(events.TopicPlan, events.PlanProgressEvent{
		TotalTasks:    len(e.tasks),
		ResolvedTasks: resolved,
		FailedTasks:   failed,
		CurrentLayer:  layer,
		TotalLayers:   e.layers,
		Timestamp:     end,
	})
}

// invoke calls the runner, converting panics into failure markers so a
// misbehaving runner cannot take down the whole layer.
func (e *executor) invoke(ctx context.Context, task plan.TaskSpec, resultsSoFar map[int]Output) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task runner panicked: %v", r)
		}
	}()
	return e.runner.Run(ctx, task, resultsSoFar)
}

// snapshot copies the resolved outputs for read-only use by a layer.
func (e *executor) snapshot() map[int]Output {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := make(map[int]Output, len(e.outputs))
	for i, out := range e.outputs {
		snap[i] = out
	}
	return snap
}

// result assembles the final Result with the trace ordered by layer then
// task index for deterministic consumption.
func (e *executor) result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	trace := make([]TraceEvent, len(e.trace))
	copy(trace, e.trace)
	sort.Slice(trace, func(a, b int) bool {
		if trace[a].Layer != trace[b].Layer {
			return trace[a].Layer < trace[b].Layer
		}
		return trace[a].Index < trace[b].Index
	})

	outputs := make(map[int]Output, len(e.outputs))
	for i, out := range e.outputs {
		outputs[i] = out
	}

	return &Result{Outputs: outputs, Trace: trace}
}

func (e *executor) publishLayerCompleted(layer int, tasks plan.Layer) {
	if e.cfg.Bus == nil {
		return
	}

	e.mu.Lock()
	failed := 0
	for _, index := range tasks {
		if out, ok := e.outputs[index]; ok && out.Failed() {
			failed++
		}
	}
	e.mu.Unlock()

	e.cfg.Bus.Publish(events.TopicPlan, events.LayerCompletedEvent{
		Layer:     layer,
		Total:     len(tasks),
		Failed:    failed,
		Timestamp: time.Now(),
	})
}

func (e *executor) publish(topic string, event events.Event) {
	if e.cfg.Bus != nil {
		e.cfg.Bus.Publish(topic, event)
	}
}

// allFailed reports whether every task in the given layer failed.
func allFailed(res *Result, layer plan.Layer) bool {
	for _, index := range layer {
		out, ok := res.Outputs[index]
		if !ok || !out.Failed() {
			return false
		}
	}
	return len(layer) > 0
}
