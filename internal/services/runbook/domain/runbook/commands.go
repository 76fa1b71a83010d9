package runbook

// CreateRunbook asks for a new runbook.
type CreateRunbook struct {
	ProjectID string
	RunbookID string
	Name      string
	OwnerID   string
}

// AddTask asks for a task to be added to a runbook.
type AddTask struct {
	TaskID      string
	Name        string
	Description string
	AssigneeID  string
}

// StartTask asks for a task to move to in progress.
type StartTask struct {
	TaskID string
	UserID string
}

// CompleteTask asks for an in-progress task to be completed.
type CompleteTask struct {
	TaskID string
	UserID string
}

// CompleteRunbook asks for the runbook to be closed.
type CompleteRunbook struct {
	RunbookID string
	UserID    string
}
