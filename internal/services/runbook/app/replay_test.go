package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/louisbranch/runbook/internal/services/runbook/publish"
)

func exportScript(t *testing.T, raw string) ([]byte, runbook.State) {
	t.Helper()
	registry := event.NewRegistry()
	if err := runbook.RegisterEvents(registry); err != nil {
		t.Fatalf("register events: %v", err)
	}
	var buf bytes.Buffer
	env, err := publish.NewEnvelope(registry, publish.NewJSONLines(&buf))
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	report, err := NewRunner(WithPublisher(env)).Run(context.Background(), mustLoadScript(t, raw))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return buf.Bytes(), report.State
}

func TestReplayFileRebuildsState(t *testing.T) {
	exported, state := exportScript(t, deployScript)
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, exported, 0o600); err != nil {
		t.Fatalf("write events: %v", err)
	}

	rb, err := ReplayFile(path)
	if err != nil {
		t.Fatalf("replay file: %v", err)
	}
	if !rb.Snapshot().Equal(state) {
		t.Fatalf("replayed = %#v, want %#v", rb.Snapshot(), state)
	}
}

func TestReplayFileMissing(t *testing.T) {
	if _, err := ReplayFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Fatal("expected open error")
	}
}

func TestReplayReaderRejectsGaps(t *testing.T) {
	exported, _ := exportScript(t, deployScript)
	lines := strings.Split(strings.TrimSpace(string(exported)), "\n")
	withGap := strings.Join(append([]string{lines[0]}, lines[2:]...), "\n")

	_, err := ReplayReader(strings.NewReader(withGap))
	if err == nil || !strings.Contains(err.Error(), "out of order") {
		t.Fatalf("error = %v, want sequence error", err)
	}
}

func TestReplayReaderRejectsTamperedPayload(t *testing.T) {
	exported, _ := exportScript(t, deployScript)
	tampered := strings.Replace(string(exported), `"task_id":"build"`, `"task_id":""`, 1)

	if _, err := ReplayReader(strings.NewReader(tampered)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReplayReaderDetectsEditedPayload(t *testing.T) {
	exported, _ := exportScript(t, deployScript)
	edited := strings.Replace(string(exported), `"name":"Build"`, `"name":"Rebuild"`, 1)
	if edited == string(exported) {
		t.Fatal("export does not contain the build task name")
	}

	_, err := ReplayReader(strings.NewReader(edited))
	if !errors.Is(err, event.ErrPayloadHashMismatch) {
		t.Fatalf("error = %v, want %v", err, event.ErrPayloadHashMismatch)
	}
}

func TestReplayReaderRejectsEmptyHistory(t *testing.T) {
	for _, raw := range []string{"", "\n\n  \n"} {
		if _, err := ReplayReader(strings.NewReader(raw)); !errors.Is(err, ErrEmptyHistory) {
			t.Fatalf("ReplayReader(%q) error = %v, want %v", raw, err, ErrEmptyHistory)
		}
	}
}
