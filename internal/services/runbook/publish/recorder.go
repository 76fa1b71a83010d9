package publish

import (
	"context"
	"sync"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
)

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []runbook.Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records evt.
func (r *Recorder) Publish(_ context.Context, evt runbook.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []runbook.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]runbook.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
