package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/louisbranch/runbook/internal/platform/errors"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"gopkg.in/yaml.v3"
)

// Script is a runbook definition followed by the commands to run against it.
type Script struct {
	Runbook RunbookSpec `yaml:"runbook"`
	Steps   []Step      `yaml:"steps"`
}

// RunbookSpec describes the runbook to create.
type RunbookSpec struct {
	ProjectID string `yaml:"project_id"`
	RunbookID string `yaml:"runbook_id"`
	Name      string `yaml:"name"`
	OwnerID   string `yaml:"owner_id"`
}

// Step holds exactly one command.
type Step struct {
	AddTask         *AddTaskStep         `yaml:"add_task,omitempty"`
	StartTask       *TaskStep            `yaml:"start_task,omitempty"`
	CompleteTask    *TaskStep            `yaml:"complete_task,omitempty"`
	CompleteRunbook *CompleteRunbookStep `yaml:"complete_runbook,omitempty"`
}

// AddTaskStep adds a task.
type AddTaskStep struct {
	TaskID      string `yaml:"task_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	AssigneeID  string `yaml:"assignee_id"`
}

// TaskStep starts or completes a task.
type TaskStep struct {
	TaskID string `yaml:"task_id"`
	UserID string `yaml:"user_id"`
}

// CompleteRunbookStep closes the runbook.
type CompleteRunbookStep struct {
	RunbookID string `yaml:"runbook_id"`
	UserID    string `yaml:"user_id"`
}

// LoadScript decodes and validates a YAML script.
func LoadScript(r io.Reader) (Script, error) {
	if r == nil {
		return Script{}, errors.New("script reader is required")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var script Script
	if err := dec.Decode(&script); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, apperrors.New(apperrors.CodeScriptInvalid, "script is empty")
		}
		return Script{}, apperrors.Wrap(apperrors.CodeScriptInvalid, "decode script", err)
	}
	if err := script.Validate(); err != nil {
		return Script{}, err
	}
	return script, nil
}

// Validate checks the runbook definition and that every step names one
// command with the identifiers it needs.
func (s Script) Validate() error {
	if strings.TrimSpace(s.Runbook.RunbookID) == "" {
		return invalidScript("runbook.runbook_id is required")
	}
	if strings.TrimSpace(s.Runbook.OwnerID) == "" {
		return invalidScript("runbook.owner_id is required")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return invalidScript(fmt.Sprintf("step %d: %s", i+1, err))
		}
	}
	return nil
}

// Name returns the command name of the step.
func (s Step) Name() string {
	switch {
	case s.AddTask != nil:
		return "add_task"
	case s.StartTask != nil:
		return "start_task"
	case s.CompleteTask != nil:
		return "complete_task"
	case s.CompleteRunbook != nil:
		return "complete_runbook"
	default:
		return ""
	}
}

// ActorID returns the user issuing the step.
func (s Step) ActorID(owner string) string {
	switch {
	case s.StartTask != nil:
		return s.StartTask.UserID
	case s.CompleteTask != nil:
		return s.CompleteTask.UserID
	case s.CompleteRunbook != nil:
		return s.CompleteRunbook.UserID
	default:
		return owner
	}
}

func (s Step) validate() error {
	set := 0
	for _, present := range []bool{s.AddTask != nil, s.StartTask != nil, s.CompleteTask != nil, s.CompleteRunbook != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("expected exactly one command, got %d", set)
	}
	switch {
	case s.AddTask != nil:
		if strings.TrimSpace(s.AddTask.TaskID) == "" {
			return errors.New("add_task.task_id is required")
		}
	case s.StartTask != nil:
		if strings.TrimSpace(s.StartTask.TaskID) == "" {
			return errors.New("start_task.task_id is required")
		}
	case s.CompleteTask != nil:
		if strings.TrimSpace(s.CompleteTask.TaskID) == "" {
			return errors.New("complete_task.task_id is required")
		}
	}
	return nil
}

func (s RunbookSpec) command() runbook.CreateRunbook {
	return runbook.CreateRunbook{
		ProjectID: s.ProjectID,
		RunbookID: s.RunbookID,
		Name:      s.Name,
		OwnerID:   s.OwnerID,
	}
}

func invalidScript(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeScriptInvalid, reason, map[string]string{"Reason": reason})
}
