package runbook

import "github.com/louisbranch/runbook/internal/services/runbook/domain/event"

const (
	EventTypeRunbookCreated       event.Type = "runbook.created"
	EventTypeTaskAdded            event.Type = "runbook.task_added"
	EventTypeTaskMarkedInProgress event.Type = "runbook.task_marked_in_progress"
	EventTypeTaskCompleted        event.Type = "runbook.task_completed"
	EventTypeRunbookCompleted     event.Type = "runbook.completed"
)

// Event is a fact emitted by the runbook aggregate. The set is closed: only
// the types declared in this package implement it.
type Event interface {
	Type() event.Type
	isRunbookEvent()
}

// RunbookCreated records the creation of a runbook.
type RunbookCreated struct {
	ProjectID string `json:"project_id"`
	RunbookID string `json:"runbook_id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
}

// TaskAdded records a new open task. UserID is the assignee.
type TaskAdded struct {
	TaskID      string `json:"task_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
}

// TaskMarkedInProgress records that the assignee started a task.
type TaskMarkedInProgress struct {
	TaskID string `json:"task_id"`
}

// TaskCompleted records that the assignee completed a task.
type TaskCompleted struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}

// RunbookCompleted records that the owner closed the runbook.
type RunbookCompleted struct {
	RunbookID string `json:"runbook_id"`
}

func (RunbookCreated) Type() event.Type       { return EventTypeRunbookCreated }
func (TaskAdded) Type() event.Type            { return EventTypeTaskAdded }
func (TaskMarkedInProgress) Type() event.Type { return EventTypeTaskMarkedInProgress }
func (TaskCompleted) Type() event.Type        { return EventTypeTaskCompleted }
func (RunbookCompleted) Type() event.Type     { return EventTypeRunbookCompleted }

func (RunbookCreated) isRunbookEvent()       {}
func (TaskAdded) isRunbookEvent()            {}
func (TaskMarkedInProgress) isRunbookEvent() {}
func (TaskCompleted) isRunbookEvent()        {}
func (RunbookCompleted) isRunbookEvent()     {}
