package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/runbook/internal/platform/requestctx"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
)

// ErrRunbookUnbound indicates an event published before the envelope sink
// learned which runbook it belongs to.
var ErrRunbookUnbound = errors.New("envelope sink is not bound to a runbook")

// Envelope encodes domain events and forwards them to an EnvelopeSink. One
// Envelope serves one runbook: it binds to the runbook id carried by
// RunbookCreated, or to the id given with WithRunbook when resuming.
type Envelope struct {
	mu        sync.Mutex
	registry  *event.Registry
	sink      EnvelopeSink
	now       func() time.Time
	newID     func() string
	runbookID string
	seq       uint64
}

// EnvelopeOption configures an Envelope.
type EnvelopeOption func(*Envelope)

// WithEnvelopeClock overrides the timestamp source.
func WithEnvelopeClock(now func() time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides envelope id generation.
func WithIDGenerator(newID func() string) EnvelopeOption {
	return func(e *Envelope) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithRunbook binds the sink to an existing runbook whose last envelope had
// sequence lastSeq.
func WithRunbook(runbookID string, lastSeq uint64) EnvelopeOption {
	return func(e *Envelope) {
		e.runbookID = runbookID
		e.seq = lastSeq
	}
}

// NewEnvelope builds an envelope encoder. The registry must have the runbook
// events registered.
func NewEnvelope(registry *event.Registry, sink EnvelopeSink, opts ...EnvelopeOption) (*Envelope, error) {
	if registry == nil {
		return nil, errors.New("event registry is required")
	}
	if sink == nil {
		return nil, errors.New("envelope sink is required")
	}
	e := &Envelope{
		registry: registry,
		sink:     sink,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Publish encodes evt and appends it to the sink. The sequence only advances
// when the sink accepts the envelope.
func (e *Envelope) Publish(ctx context.Context, evt runbook.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	runbookID := e.runbookID
	if created, ok := evt.(runbook.RunbookCreated); ok && runbookID == "" {
		runbookID = created.RunbookID
	}
	if runbookID == "" {
		return ErrRunbookUnbound
	}

	envelope, err := runbook.Encode(runbookID, evt)
	if err != nil {
		return err
	}
	envelope.ID = e.newID()
	envelope.Seq = e.seq + 1
	envelope.Timestamp = e.now()
	envelope.ActorID = requestctx.ActorIDFromContext(ctx)

	validated, err := e.registry.ValidateForAppend(envelope)
	if err != nil {
		return fmt.Errorf("validate %s envelope: %w", evt.Type(), err)
	}
	if err := e.sink.Append(ctx, validated); err != nil {
		return err
	}
	e.runbookID = runbookID
	e.seq = validated.Seq
	return nil
}

// Seq returns the sequence of the last accepted envelope.
func (e *Envelope) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}
