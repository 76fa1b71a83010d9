package publish

import (
	"context"
	"fmt"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
)

// Fanout publishes to each sink in order and stops at the first failure.
// Sinks earlier in the list have already seen the event when a later one
// fails, so order durable sinks last.
type Fanout []runbook.Publisher

// Publish forwards evt to every sink.
func (f Fanout) Publish(ctx context.Context, evt runbook.Event) error {
	for i, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, evt); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
