package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/louisbranch/runbook/internal/services/runbook/publish"
)

// ErrEmptyHistory indicates an event log with no envelopes.
var ErrEmptyHistory = errors.New("event log has no envelopes")

// ReplayFile rebuilds a runbook from a JSON Lines file of envelopes.
func ReplayFile(path string) (*runbook.Runbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()
	return ReplayReader(f)
}

// ReplayReader rebuilds a runbook from JSON Lines envelopes. Envelopes are
// validated against the runbook event registry, must belong to one runbook,
// must carry consecutive sequence numbers starting at 1, and must match any
// payload hash they were exported with.
func ReplayReader(r io.Reader) (*runbook.Runbook, error) {
	envelopes, err := publish.ReadJSONLines(r)
	if err != nil {
		return nil, err
	}
	if len(envelopes) == 0 {
		return nil, ErrEmptyHistory
	}
	registry := event.NewRegistry()
	if err := runbook.RegisterEvents(registry); err != nil {
		return nil, err
	}

	var runbookID string
	for i, envelope := range envelopes {
		validated, err := registry.ValidateStored(envelope)
		if err != nil {
			return nil, fmt.Errorf("envelope %d: %w", i+1, err)
		}
		if runbookID == "" {
			runbookID = validated.RunbookID
		}
		if validated.RunbookID != runbookID {
			return nil, fmt.Errorf("envelope %d: runbook %s, want %s", i+1, validated.RunbookID, runbookID)
		}
		if validated.Seq != uint64(i+1) {
			return nil, fmt.Errorf("envelope %d: sequence %d out of order", i+1, validated.Seq)
		}
		envelopes[i] = validated
	}

	events, err := runbook.DecodeAll(envelopes)
	if err != nil {
		return nil, err
	}
	return runbook.Replay(events, nil)
}
