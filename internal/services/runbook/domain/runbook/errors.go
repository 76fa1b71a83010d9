package runbook

import (
	"errors"
	"strconv"

	apperrors "github.com/louisbranch/runbook/internal/platform/errors"
)

// Command rejections. Returned errors carry metadata for localized messages
// and match these sentinels with errors.Is.
var (
	// ErrAssigneeMismatch indicates the actor is not the task assignee.
	ErrAssigneeMismatch = apperrors.New(apperrors.CodeTaskAssigneeMismatch, "task assigned to different user")
	// ErrTaskNotInProgress indicates a completion for a task that was not started.
	ErrTaskNotInProgress = apperrors.New(apperrors.CodeTaskNotInProgress, "can only complete in-progress task")
	// ErrTaskAlreadyCompleted indicates a start for a task that is already closed.
	ErrTaskAlreadyCompleted = apperrors.New(apperrors.CodeTaskAlreadyCompleted, "task already completed")
	// ErrNotOwner indicates the actor does not own the runbook.
	ErrNotOwner = apperrors.New(apperrors.CodeRunbookNotOwner, "runbook owned by different user")
	// ErrPendingTasksExist indicates open or in-progress tasks block completion.
	ErrPendingTasksExist = apperrors.New(apperrors.CodeRunbookPendingTasks, "runbook has pending tasks")
	// ErrTaskNotFound indicates a command addressed an unknown task.
	ErrTaskNotFound = apperrors.New(apperrors.CodeTaskNotFound, "task not found")
	// ErrRunbookNotCreated indicates a command on an aggregate without history.
	ErrRunbookNotCreated = apperrors.New(apperrors.CodeRunbookNotCreated, "runbook not created")
	// ErrRunbookMismatch indicates a command addressed a different runbook.
	ErrRunbookMismatch = apperrors.New(apperrors.CodeRunbookMismatch, "command addressed a different runbook")
)

// Data-integrity failures raised by Apply. These are never business
// rejections: they mean the event stream itself is inconsistent.
var (
	// ErrEventBeforeCreation indicates an event applied before RunbookCreated.
	ErrEventBeforeCreation = errors.New("event applied before runbook creation")
	// ErrDuplicateCreation indicates RunbookCreated applied twice.
	ErrDuplicateCreation = errors.New("runbook already created")
	// ErrEventUnknownTask indicates a task event for a task that was never added.
	ErrEventUnknownTask = errors.New("event references unknown task")
	// ErrEventUnsupported indicates an event type the aggregate cannot apply.
	ErrEventUnsupported = errors.New("event type is not supported")
	// ErrPublisherRequired indicates a command issued without a publish sink.
	ErrPublisherRequired = errors.New("publisher is required")
)

func assigneeMismatch(taskID, userID string) error {
	return apperrors.WithMetadata(ErrAssigneeMismatch.Code, ErrAssigneeMismatch.Message, map[string]string{
		"TaskID": taskID,
		"UserID": userID,
	})
}

func taskNotInProgress(taskID string) error {
	return apperrors.WithMetadata(ErrTaskNotInProgress.Code, ErrTaskNotInProgress.Message, map[string]string{
		"TaskID": taskID,
	})
}

func taskAlreadyCompleted(taskID string) error {
	return apperrors.WithMetadata(ErrTaskAlreadyCompleted.Code, ErrTaskAlreadyCompleted.Message, map[string]string{
		"TaskID": taskID,
	})
}

func taskNotFound(taskID string) error {
	return apperrors.WithMetadata(ErrTaskNotFound.Code, ErrTaskNotFound.Message, map[string]string{
		"TaskID": taskID,
	})
}

func notOwner(runbookID, userID string) error {
	return apperrors.WithMetadata(ErrNotOwner.Code, ErrNotOwner.Message, map[string]string{
		"RunbookID": runbookID,
		"UserID":    userID,
	})
}

func pendingTasks(runbookID string, pending int) error {
	return apperrors.WithMetadata(ErrPendingTasksExist.Code, ErrPendingTasksExist.Message, map[string]string{
		"RunbookID":    runbookID,
		"PendingCount": strconv.Itoa(pending),
	})
}

func runbookMismatch(want, got string) error {
	return apperrors.WithMetadata(ErrRunbookMismatch.Code, ErrRunbookMismatch.Message, map[string]string{
		"RunbookID":   want,
		"RequestedID": got,
	})
}
