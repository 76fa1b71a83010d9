package runbook

// Status is the lifecycle position of a task.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Task is a unit of work owned by a runbook. It holds no validation: the
// owning Runbook checks every precondition before calling its apply methods.
type Task struct {
	id          string
	name        string
	description string
	assigneeID  string
	status      Status
}

func newTask(evt TaskAdded) *Task {
	return &Task{
		id:          evt.TaskID,
		name:        evt.Name,
		description: evt.Description,
		assigneeID:  evt.UserID,
		status:      StatusOpen,
	}
}

// ID returns the task identifier.
func (t Task) ID() string { return t.id }

// Name returns the task name.
func (t Task) Name() string { return t.name }

// Description returns the task description.
func (t Task) Description() string { return t.description }

// AssigneeID returns the user allowed to start and complete the task.
func (t Task) AssigneeID() string { return t.assigneeID }

// Status returns the current lifecycle status.
func (t Task) Status() Status { return t.status }

// IsInProgress reports whether the task has been started but not completed.
func (t Task) IsInProgress() bool { return t.status == StatusInProgress }

// IsClosed reports whether the task is completed.
func (t Task) IsClosed() bool { return t.status == StatusCompleted }

func (t *Task) applyMarkedInProgress(TaskMarkedInProgress) {
	t.status = StatusInProgress
}

func (t *Task) applyCompleted(TaskCompleted) {
	t.status = StatusCompleted
}
