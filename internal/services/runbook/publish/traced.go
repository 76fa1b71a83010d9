package publish

import (
	"context"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/runbook/internal/services/runbook/publish"

// Traced wraps a publisher in one span per event.
type Traced struct {
	next   runbook.Publisher
	tracer trace.Tracer
}

// NewTraced decorates next. A nil tracer uses the global provider.
func NewTraced(next runbook.Publisher, tracer trace.Tracer) *Traced {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Traced{next: next, tracer: tracer}
}

// Publish forwards evt inside a span.
func (t *Traced) Publish(ctx context.Context, evt runbook.Event) error {
	ctx, span := t.tracer.Start(ctx, "runbook.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("runbook.event_type", string(evt.Type()))),
	)
	defer span.End()

	if err := t.next.Publish(ctx, evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
