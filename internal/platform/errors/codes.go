// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Runbook errors
	CodeRunbookNotOwner     Code = "RUNBOOK_NOT_OWNER"
	CodeRunbookPendingTasks Code = "RUNBOOK_PENDING_TASKS"
	CodeRunbookNotCreated   Code = "RUNBOOK_NOT_CREATED"
	CodeRunbookMismatch     Code = "RUNBOOK_MISMATCH"

	// Task errors
	CodeTaskAssigneeMismatch Code = "RUNBOOK_TASK_ASSIGNEE_MISMATCH"
	CodeTaskNotInProgress    Code = "RUNBOOK_TASK_NOT_IN_PROGRESS"
	CodeTaskNotFound         Code = "RUNBOOK_TASK_NOT_FOUND"
	CodeTaskAlreadyCompleted Code = "RUNBOOK_TASK_ALREADY_COMPLETED"

	// Publication errors
	CodePublishFailed Code = "PUBLISH_FAILED"

	// Script errors
	CodeScriptInvalid Code = "SCRIPT_INVALID"
)

// Codes lists every code the runbook service can return.
func Codes() []Code {
	return []Code{
		CodeUnknown,
		CodeRunbookNotOwner,
		CodeRunbookPendingTasks,
		CodeRunbookNotCreated,
		CodeRunbookMismatch,
		CodeTaskAssigneeMismatch,
		CodeTaskNotInProgress,
		CodeTaskNotFound,
		CodeTaskAlreadyCompleted,
		CodePublishFailed,
		CodeScriptInvalid,
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// PermissionDenied - actor is not allowed to act on the target
	case CodeRunbookNotOwner,
		CodeTaskAssigneeMismatch:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeRunbookPendingTasks,
		CodeRunbookNotCreated,
		CodeRunbookMismatch,
		CodeTaskNotInProgress,
		CodeTaskAlreadyCompleted:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeTaskNotFound:
		return codes.NotFound

	// InvalidArgument - bad input
	case CodeScriptInvalid:
		return codes.InvalidArgument

	// Unavailable - the downstream sink refused the event
	case CodePublishFailed:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// IsRejection reports whether the code represents a business rule rejection
// rather than an infrastructure failure.
func (c Code) IsRejection() bool {
	switch c.GRPCCode() {
	case codes.PermissionDenied, codes.FailedPrecondition, codes.NotFound:
		return true
	default:
		return false
	}
}
