package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskKey() string
}

// Topic constants
const (
	TopicTask = "task"
	TopicRun  = "run"
)

// Event type constants
const (
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypeTaskCached    = "task.cached"
	EventTypeRunStarted    = "run.started"
	EventTypeRunCompleted  = "run.completed"
)

// TaskStartedEvent is published when a task's computation begins.
type TaskStartedEvent struct {
	Key       string
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskKey() string   { return e.Key }

// TaskCompletedEvent is published when a task's computation succeeds.
type TaskCompletedEvent struct {
	Key       string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskKey() string   { return e.Key }

// TaskFailedEvent is published when a task's computation fails.
type TaskFailedEvent struct {
	Key       string
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskKey() string   { return e.Key }

// TaskCachedEvent is published when a task is satisfied from its memoized
// result without running.
type TaskCachedEvent struct {
	Key       string
	Timestamp time.Time
}

func (e TaskCachedEvent) EventType() string { return EventTypeTaskCached }
func (e TaskCachedEvent) TaskKey() string   { return e.Key }

// RunStartedEvent is published when a Runner starts resolving targets.
type RunStartedEvent struct {
	Targets     []string
	Fingerprint uint64
	Timestamp   time.Time
}

func (e RunStartedEvent) EventType() string { return EventTypeRunStarted }
func (e RunStartedEvent) TaskKey() string   { return "" }

// RunCompletedEvent is published when a Runner finishes, successfully or not.
type RunCompletedEvent struct {
	Targets   []string
	Completed int
	Failed    int
	Err       error
	Timestamp time.Time
}

func (e RunCompletedEvent) EventType() string { return EventTypeRunCompleted }
func (e RunCompletedEvent) TaskKey() string   { return "" }
