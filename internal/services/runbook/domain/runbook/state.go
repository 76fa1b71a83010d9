package runbook

import "sort"

// State is a detached read model of a runbook.
type State struct {
	RunbookID string      `json:"runbook_id" yaml:"runbook_id"`
	ProjectID string      `json:"project_id" yaml:"project_id"`
	Name      string      `json:"name" yaml:"name"`
	OwnerID   string      `json:"owner_id" yaml:"owner_id"`
	Created   bool        `json:"created" yaml:"created"`
	Completed bool        `json:"completed" yaml:"completed"`
	Tasks     []TaskState `json:"tasks" yaml:"tasks"`
}

// TaskState is the read model of a task.
type TaskState struct {
	TaskID      string `json:"task_id" yaml:"task_id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	AssigneeID  string `json:"assignee_id" yaml:"assignee_id"`
	Status      Status `json:"status" yaml:"status"`
}

// Snapshot returns the current state with tasks ordered by id.
func (r *Runbook) Snapshot() State {
	state := State{
		RunbookID: r.runbookID,
		ProjectID: r.projectID,
		Name:      r.name,
		OwnerID:   r.ownerID,
		Created:   r.created,
		Completed: r.completed,
		Tasks:     make([]TaskState, 0, len(r.tasks)),
	}
	for _, task := range r.tasks {
		state.Tasks = append(state.Tasks, TaskState{
			TaskID:      task.id,
			Name:        task.name,
			Description: task.description,
			AssigneeID:  task.assigneeID,
			Status:      task.status,
		})
	}
	sort.Slice(state.Tasks, func(i, j int) bool {
		return state.Tasks[i].TaskID < state.Tasks[j].TaskID
	})
	return state
}

// PendingCount returns the number of tasks that are not completed.
func (s State) PendingCount() int {
	pending := 0
	for _, task := range s.Tasks {
		if task.Status != StatusCompleted {
			pending++
		}
	}
	return pending
}

// Equal reports whether two states describe the same runbook.
func (s State) Equal(other State) bool {
	if s.RunbookID != other.RunbookID ||
		s.ProjectID != other.ProjectID ||
		s.Name != other.Name ||
		s.OwnerID != other.OwnerID ||
		s.Created != other.Created ||
		s.Completed != other.Completed ||
		len(s.Tasks) != len(other.Tasks) {
		return false
	}
	for i := range s.Tasks {
		if s.Tasks[i] != other.Tasks[i] {
			return false
		}
	}
	return true
}
