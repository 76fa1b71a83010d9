package app

import (
	"strings"
	"testing"

	apperrors "github.com/louisbranch/runbook/internal/platform/errors"
	errori18n "github.com/louisbranch/runbook/internal/platform/errors/i18n"
)

func TestLoadScriptDecodesSteps(t *testing.T) {
	script := mustLoadScript(t, deployScript)

	if script.Runbook.RunbookID != "r" || script.Runbook.OwnerID != "o" || script.Runbook.Name != "Deploy" {
		t.Fatalf("runbook = %+v", script.Runbook)
	}
	if len(script.Steps) != 10 {
		t.Fatalf("steps = %d, want 10", len(script.Steps))
	}
	first := script.Steps[0]
	if first.Name() != "add_task" || first.AddTask.TaskID != "build" || first.AddTask.AssigneeID != "u" {
		t.Fatalf("first step = %+v", first.AddTask)
	}
	if got := first.ActorID("o"); got != "o" {
		t.Fatalf("add_task actor = %s, want owner", got)
	}
	if got := script.Steps[2].ActorID("o"); got != "u" {
		t.Fatalf("start_task actor = %s, want u", got)
	}
}

func TestLoadScriptRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "empty", raw: "", reason: ""},
		{name: "unknown field", raw: "runbook: {runbook_id: r, owner_id: o}\nextra: true\n", reason: ""},
		{name: "missing runbook id", raw: "runbook: {owner_id: o}\n", reason: "runbook.runbook_id is required"},
		{name: "missing owner", raw: "runbook: {runbook_id: r}\n", reason: "runbook.owner_id is required"},
		{
			name:   "two commands in one step",
			raw:    "runbook: {runbook_id: r, owner_id: o}\nsteps:\n  - start_task: {task_id: t, user_id: u}\n    complete_task: {task_id: t, user_id: u}\n",
			reason: "step 1: expected exactly one command, got 2",
		},
		{
			name:   "missing task id",
			raw:    "runbook: {runbook_id: r, owner_id: o}\nsteps:\n  - complete_task: {user_id: u}\n",
			reason: "step 1: complete_task.task_id is required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScript(strings.NewReader(tc.raw))
			if apperrors.CodeOf(err) != apperrors.CodeScriptInvalid {
				t.Fatalf("error = %v, want %s", err, apperrors.CodeScriptInvalid)
			}
			if tc.reason == "" {
				return
			}
			if got := apperrors.MetadataOf(err)["Reason"]; got != tc.reason {
				t.Fatalf("reason = %q, want %q", got, tc.reason)
			}
			want := "The runbook script is invalid: " + tc.reason
			if got := errori18n.Message(err, "en-US"); got != want {
				t.Fatalf("message = %q, want %q", got, want)
			}
		})
	}
}

func TestLoadScriptRequiresReader(t *testing.T) {
	_, err := LoadScript(nil)
	if err == nil {
		t.Fatal("expected error for nil reader")
	}
	if code := apperrors.CodeOf(err); code != apperrors.CodeUnknown {
		t.Fatalf("code = %q, want %q", code, apperrors.CodeUnknown)
	}
}
