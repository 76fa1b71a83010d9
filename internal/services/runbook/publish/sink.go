package publish

import (
	"context"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
)

// EnvelopeSink accepts encoded envelopes.
type EnvelopeSink interface {
	Append(ctx context.Context, evt event.Event) error
}

// EnvelopeSinkFunc adapts a function to EnvelopeSink.
type EnvelopeSinkFunc func(ctx context.Context, evt event.Event) error

// Append calls f.
func (f EnvelopeSinkFunc) Append(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}
