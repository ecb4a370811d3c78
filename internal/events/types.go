package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskIndex() int
}

// Topic constants
const (
	TopicTask = "task"
	TopicPlan = "plan"
)

// Event type constants
const (
	EventTypePlanCreated    = "plan.created"
	EventTypePlanProgress   = "plan.progress"
	EventTypeLayerCompleted = "plan.layer_completed"
	EventTypeTaskStarted    = "task.started"
	EventTypeTaskCompleted  = "task.completed"
	EventTypeTaskFailed     = "task.failed"
)

// PlanCreatedEvent is published when the planner produces an execution plan.
type PlanCreatedEvent struct {
	Description string
	Roles       []string
	Layers      int
	Depth       int
	Timestamp   time.Time
}

func (e PlanCreatedEvent) EventType() string { return EventTypePlanCreated }
func (e PlanCreatedEvent) TaskIndex() int    { return -1 }

// TaskStartedEvent is published when a task begins execution.
type TaskStartedEvent struct {
	Index     int
	Role      string
	Task      string
	Layer     int
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskIndex() int    { return e.Index }

// TaskCompletedEvent is published when a task resolves successfully.
type TaskCompletedEvent struct {
	Index     int
	Role      string
	Layer     int
	Output    string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskIndex() int    { return e.Index }

// TaskFailedEvent is published when a task resolves with a failure marker.
// Sibling tasks in the same layer keep running.
type TaskFailedEvent struct {
	Index     int
	Role      string
	Layer     int
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskIndex() int    { return e.Index }

// LayerCompletedEvent is published at the barrier after every task in a
// layer has reached a terminal state.
type LayerCompletedEvent struct {
	Layer     int
	Total     int
	Failed    int
	Timestamp time.Time
}

func (e LayerCompletedEvent) EventType() string { return EventTypeLayerCompleted }
func (e LayerCompletedEvent) TaskIndex() int    { return -1 }

// PlanProgressEvent reports overall plan progress.
type PlanProgressEvent struct {
	TotalTasks    int
	ResolvedTasks int
	FailedTasks   int
	CurrentLayer  int
	TotalLayers   int
	Timestamp     time.Time
}

func (e PlanProgressEvent) EventType() string { return EventTypePlanProgress }
func (e PlanProgressEvent) TaskIndex() int    { return -1 }
