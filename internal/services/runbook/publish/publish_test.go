package publish

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/louisbranch/runbook/internal/platform/logging"
	"github.com/louisbranch/runbook/internal/platform/requestctx"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var errSinkDown = errors.New("sink down")

func failingPublisher() runbook.Publisher {
	return runbook.PublisherFunc(func(context.Context, runbook.Event) error { return errSinkDown })
}

func TestRecorderKeepsOrderAndCopies(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()
	_ = rec.Publish(ctx, runbook.RunbookCreated{RunbookID: "r"})
	_ = rec.Publish(ctx, runbook.TaskAdded{TaskID: "t"})

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Type() != runbook.EventTypeTaskAdded {
		t.Fatalf("events[1] type = %s, want %s", events[1].Type(), runbook.EventTypeTaskAdded)
	}
	events[0] = nil
	if rec.Events()[0] == nil {
		t.Fatal("expected recorder to return a copy")
	}
	rec.Reset()
	if rec.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", rec.Len())
	}
}

func TestFanoutStopsAtFirstFailure(t *testing.T) {
	first := NewRecorder()
	last := NewRecorder()
	fanout := Fanout{first, failingPublisher(), last}

	err := fanout.Publish(context.Background(), runbook.TaskMarkedInProgress{TaskID: "t"})
	if !errors.Is(err, errSinkDown) {
		t.Fatalf("error = %v, want %v", err, errSinkDown)
	}
	if first.Len() != 1 {
		t.Fatalf("first sink events = %d, want 1", first.Len())
	}
	if last.Len() != 0 {
		t.Fatalf("last sink events = %d, want 0", last.Len())
	}
}

func TestFanoutSkipsNilSinks(t *testing.T) {
	rec := NewRecorder()
	if err := (Fanout{nil, rec}).Publish(context.Background(), runbook.RunbookCompleted{RunbookID: "r"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if rec.Len() != 1 {
		t.Fatalf("events = %d, want 1", rec.Len())
	}
}

func TestLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(logging.New(logging.Config{Format: logging.FormatText}, &buf))
	ctx := requestctx.WithActorID(context.Background(), "u")

	if err := logger.Publish(ctx, runbook.TaskCompleted{TaskID: "t", UserID: "u"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"event published", "event_type=runbook.task_completed", "component=publish", "actor_id=u"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %q", out, want)
		}
	}
}

func TestTracedRecordsSpanPerEvent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	traced := NewTraced(NewRecorder(), provider.Tracer("test"))
	if err := traced.Publish(context.Background(), runbook.TaskAdded{TaskID: "t"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	failing := NewTraced(failingPublisher(), provider.Tracer("test"))
	if err := failing.Publish(context.Background(), runbook.TaskAdded{TaskID: "t"}); !errors.Is(err, errSinkDown) {
		t.Fatalf("error = %v, want %v", err, errSinkDown)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "runbook.publish" {
		t.Fatalf("span name = %s, want runbook.publish", spans[0].Name())
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatal("expected successful span without error status")
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("failed span status = %v, want error", spans[1].Status().Code)
	}
}

func TestMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok, err := NewMetrics(reg, NewRecorder())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	ctx := context.Background()
	_ = ok.Publish(ctx, runbook.TaskAdded{TaskID: "a"})
	_ = ok.Publish(ctx, runbook.TaskAdded{TaskID: "b"})

	failing, err := NewMetrics(reg, failingPublisher())
	if err != nil {
		t.Fatalf("new metrics sharing registry: %v", err)
	}
	_ = failing.Publish(ctx, runbook.RunbookCompleted{RunbookID: "r"})

	if got := testutil.ToFloat64(ok.Published().WithLabelValues(string(runbook.EventTypeTaskAdded))); got != 2 {
		t.Fatalf("published task_added = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ok.Failures().WithLabelValues(string(runbook.EventTypeRunbookCompleted))); got != 1 {
		t.Fatalf("failures runbook.completed = %v, want 1", got)
	}
}

func TestMetricsRequiresPublisher(t *testing.T) {
	if _, err := NewMetrics(prometheus.NewRegistry(), nil); err == nil {
		t.Fatal("expected missing publisher error")
	}
}

func TestDecoratorsWrapAggregate(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder()
	metrics, err := NewMetrics(reg, NewTraced(Fanout{NewLogger(logging.Discard()), rec}, nil))
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	r, err := runbook.Create(context.Background(), runbook.CreateRunbook{RunbookID: "r", OwnerID: "o"}, metrics)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.CompleteRunbook(context.Background(), runbook.CompleteRunbook{UserID: "o"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rec.Len() != 2 {
		t.Fatalf("recorded = %d, want 2", rec.Len())
	}
	if got := testutil.CollectAndCount(metrics.Published()); got != 2 {
		t.Fatalf("published series = %d, want 2", got)
	}
}
