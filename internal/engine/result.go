package engine

import (
	"time"
)

// Status is the terminal state of one task invocation.
type Status int

const (
	StatusCompleted Status = iota
	StatusFailed
)

// String returns the status name used in traces and rendering.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Output is the resolved value of one task: either the runner's text or a
// failure marker. Downstream tasks receive failed dependencies as part of
// their input context and decide how to degrade.
type Output struct {
	Text string
	Err  error
}

// Failed reports whether this output is a failure marker.
func (o Output) Failed() bool {
	return o.Err != nil
}

// TraceEvent is one record of the flat execution trace consumed by
// observability collaborators. Consumers read but never mutate it.
type TraceEvent struct {
	Index     int
	Role      string
	Task      string
	Layer     int
	Status    Status
	Err       error
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the task's wall-clock run time.
func (e TraceEvent) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Result aggregates a plan execution: outputs keyed by task index plus the
// ordered trace. Populated incrementally while layers run, returned once
// the plan finishes (or is cancelled, with whatever resolved so far).
type Result struct {
	Outputs map[int]Output
	Trace   []TraceEvent
}

// Final returns the output of the given task index and whether it resolved.
func (r *Result) Final(index int) (Output, bool) {
	out, ok := r.Outputs[index]
	return out, ok
}
