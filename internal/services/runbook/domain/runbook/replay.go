package runbook

import "fmt"

// Replay rebuilds a runbook from its ordered history. Events are applied
// without validation and without publishing; publisher is only used by
// commands issued after the replay.
func Replay(events []Event, publisher Publisher) (*Runbook, error) {
	r := New(publisher)
	for i, evt := range events {
		if err := r.Apply(evt); err != nil {
			return nil, fmt.Errorf("replay event %d: %w", i, err)
		}
	}
	return r, nil
}
