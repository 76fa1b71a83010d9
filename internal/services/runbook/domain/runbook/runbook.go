package runbook

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/runbook/internal/platform/errors"
)

// Publisher receives every event the aggregate emits. Publish runs before the
// event is applied; an error aborts the command with no state change.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, evt Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Runbook is the aggregate root. It is not safe for concurrent use: callers
// serialize commands per instance.
type Runbook struct {
	runbookID string
	projectID string
	name      string
	ownerID   string
	completed bool
	created   bool
	tasks     map[string]*Task

	publisher Publisher
}

// New returns an empty aggregate ready to replay history. It is not a usable
// runbook until a RunbookCreated event is applied.
func New(publisher Publisher) *Runbook {
	return &Runbook{publisher: publisher}
}

// Create handles CreateRunbook. It is the only way to obtain a live runbook
// besides replay.
func Create(ctx context.Context, cmd CreateRunbook, publisher Publisher) (*Runbook, error) {
	r := New(publisher)
	if err := r.commit(ctx, RunbookCreated{
		ProjectID: cmd.ProjectID,
		RunbookID: cmd.RunbookID,
		Name:      cmd.Name,
		OwnerID:   cmd.OwnerID,
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// AddTask handles AddTask. Re-adding an existing task id replaces the task.
func (r *Runbook) AddTask(ctx context.Context, cmd AddTask) error {
	if !r.created {
		return ErrRunbookNotCreated
	}
	return r.commit(ctx, TaskAdded{
		TaskID:      cmd.TaskID,
		Name:        cmd.Name,
		Description: cmd.Description,
		UserID:      cmd.AssigneeID,
	})
}

// StartTask handles StartTask.
func (r *Runbook) StartTask(ctx context.Context, cmd StartTask) error {
	task, err := r.lookupTask(cmd.TaskID)
	if err != nil {
		return err
	}
	if err := verifyAssignee(task, cmd.UserID); err != nil {
		return err
	}
	if task.IsClosed() {
		return taskAlreadyCompleted(task.id)
	}
	return r.commit(ctx, TaskMarkedInProgress{TaskID: task.id})
}

// CompleteTask handles CompleteTask.
func (r *Runbook) CompleteTask(ctx context.Context, cmd CompleteTask) error {
	task, err := r.lookupTask(cmd.TaskID)
	if err != nil {
		return err
	}
	if err := verifyAssignee(task, cmd.UserID); err != nil {
		return err
	}
	if !task.IsInProgress() {
		return taskNotInProgress(task.id)
	}
	return r.commit(ctx, TaskCompleted{TaskID: task.id, UserID: cmd.UserID})
}

// CompleteRunbook handles CompleteRunbook. Ownership is checked before
// pending tasks.
func (r *Runbook) CompleteRunbook(ctx context.Context, cmd CompleteRunbook) error {
	if !r.created {
		return ErrRunbookNotCreated
	}
	runbookID := cmd.RunbookID
	if runbookID == "" {
		runbookID = r.runbookID
	}
	if runbookID != r.runbookID {
		return runbookMismatch(r.runbookID, runbookID)
	}
	if cmd.UserID != r.ownerID {
		return notOwner(r.runbookID, cmd.UserID)
	}
	if pending := r.pendingTaskCount(); pending > 0 {
		return pendingTasks(r.runbookID, pending)
	}
	return r.commit(ctx, RunbookCompleted{RunbookID: runbookID})
}

// commit publishes evt and applies it only when the publisher accepted it.
func (r *Runbook) commit(ctx context.Context, evt Event) error {
	if r.publisher == nil {
		return ErrPublisherRequired
	}
	if err := r.publisher.Publish(ctx, evt); err != nil {
		return apperrors.Wrap(apperrors.CodePublishFailed, fmt.Sprintf("publish %s", evt.Type()), err)
	}
	if err := r.Apply(evt); err != nil {
		return fmt.Errorf("apply %s: %w", evt.Type(), err)
	}
	return nil
}

func (r *Runbook) lookupTask(taskID string) (*Task, error) {
	if !r.created {
		return nil, ErrRunbookNotCreated
	}
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, taskNotFound(taskID)
	}
	return task, nil
}

func verifyAssignee(task *Task, userID string) error {
	if task.assigneeID != userID {
		return assigneeMismatch(task.id, userID)
	}
	return nil
}

func (r *Runbook) pendingTaskCount() int {
	pending := 0
	for _, task := range r.tasks {
		if !task.IsClosed() {
			pending++
		}
	}
	return pending
}

// RunbookID returns the runbook identifier.
func (r *Runbook) RunbookID() string { return r.runbookID }

// ProjectID returns the owning project identifier.
func (r *Runbook) ProjectID() string { return r.projectID }

// Name returns the runbook name.
func (r *Runbook) Name() string { return r.name }

// OwnerID returns the user allowed to complete the runbook.
func (r *Runbook) OwnerID() string { return r.ownerID }

// Completed reports whether RunbookCompleted has been applied.
func (r *Runbook) Completed() bool { return r.completed }

// Created reports whether RunbookCreated has been applied.
func (r *Runbook) Created() bool { return r.created }

// TaskCount returns the number of tasks.
func (r *Runbook) TaskCount() int { return len(r.tasks) }

// Task returns a copy of the task with the given id.
func (r *Runbook) Task(taskID string) (Task, bool) {
	task, ok := r.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Tasks returns copies of all tasks keyed by id.
func (r *Runbook) Tasks() map[string]Task {
	out := make(map[string]Task, len(r.tasks))
	for id, task := range r.tasks {
		out[id] = *task
	}
	return out
}
