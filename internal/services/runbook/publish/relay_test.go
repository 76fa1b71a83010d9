package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/runbook/internal/platform/logging"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/louisbranch/runbook/internal/services/runbook/storage/sqlite"
)

func openTestOutbox(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRelayDrainsOutboxInOrder(t *testing.T) {
	outbox := openTestOutbox(t)
	env, err := NewEnvelope(newTestRegistry(t), outbox)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	r, err := runbook.Create(context.Background(), runbook.CreateRunbook{RunbookID: "r", OwnerID: "o"}, env)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.AddTask(context.Background(), runbook.AddTask{TaskID: "t", AssigneeID: "u"}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	downstream := &memorySink{}
	relay, err := NewRelay(outbox, downstream, logging.Discard())
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	result, err := relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Delivered != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 2 delivered", result)
	}
	if downstream.envelopes[0].Seq != 1 || downstream.envelopes[1].Seq != 2 {
		t.Fatalf("delivered seqs = %d,%d, want 1,2", downstream.envelopes[0].Seq, downstream.envelopes[1].Seq)
	}

	summary, err := outbox.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.DeliveredCount != 2 || summary.PendingCount != 0 {
		t.Fatalf("summary = %+v, want 2 delivered", summary)
	}
}

func TestRelayHoldsLaterEnvelopesAfterFailure(t *testing.T) {
	outbox := openTestOutbox(t)
	env, err := NewEnvelope(newTestRegistry(t), outbox)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	r, err := runbook.Create(context.Background(), runbook.CreateRunbook{RunbookID: "r", OwnerID: "o"}, env)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.AddTask(context.Background(), runbook.AddTask{TaskID: "t", AssigneeID: "u"}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	calls := 0
	downstream := EnvelopeSinkFunc(func(context.Context, event.Event) error {
		calls++
		return errSinkDown
	})
	relay, err := NewRelay(outbox, downstream, nil)
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	result, err := relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Failed != 1 || result.Delivered != 0 {
		t.Fatalf("result = %+v, want 1 failed", result)
	}
	if calls != 1 {
		t.Fatalf("downstream calls = %d, want 1", calls)
	}

	summary, err := outbox.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.FailedCount != 1 || summary.PendingCount != 1 {
		t.Fatalf("summary = %+v, want 1 failed and 1 pending", summary)
	}
}

func TestRelayDeliversOtherRunbooksPastBlockedBacklog(t *testing.T) {
	outbox := openTestOutbox(t)
	ctx := context.Background()
	queue := func(runbookID string, seq uint64) {
		t.Helper()
		err := outbox.Append(ctx, event.Event{
			ID:          fmt.Sprintf("%s-%d", runbookID, seq),
			RunbookID:   runbookID,
			Seq:         seq,
			Type:        runbook.EventTypeRunbookCompleted,
			Timestamp:   time.Now().UTC(),
			EntityType:  "runbook",
			EntityID:    runbookID,
			PayloadJSON: []byte(`{"runbook_id":"` + runbookID + `"}`),
		})
		if err != nil {
			t.Fatalf("append %s/%d: %v", runbookID, seq, err)
		}
	}
	for seq := uint64(1); seq <= defaultRelayBatchSize+6; seq++ {
		queue("a", seq)
	}
	queue("b", 1)

	var attemptsA int
	downstream := &memorySink{}
	sink := EnvelopeSinkFunc(func(ctx context.Context, evt event.Event) error {
		if evt.RunbookID == "a" {
			attemptsA++
			return errSinkDown
		}
		return downstream.Append(ctx, evt)
	})
	relay, err := NewRelay(outbox, sink, nil)
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	result, err := relay.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if result.Delivered != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 delivered and 1 failed", result)
	}
	if attemptsA != 1 {
		t.Fatalf("attempts for a = %d, want 1", attemptsA)
	}
	if len(downstream.envelopes) != 1 || downstream.envelopes[0].RunbookID != "b" {
		t.Fatalf("delivered = %+v, want runbook b", downstream.envelopes)
	}
}

type brokenOutbox struct{}

func (brokenOutbox) ListPending(context.Context, time.Time, int, ...string) ([]event.Event, error) {
	return nil, errSinkDown
}
func (brokenOutbox) MarkDelivered(context.Context, string) error { return nil }

func (brokenOutbox) MarkFailed(context.Context, string, error) error { return nil }

func TestRelayPropagatesOutboxErrors(t *testing.T) {
	relay, err := NewRelay(brokenOutbox{}, &memorySink{}, nil)
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	if _, err := relay.Drain(context.Background()); !errors.Is(err, errSinkDown) {
		t.Fatalf("error = %v, want %v", err, errSinkDown)
	}
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	if _, err := NewRelay(nil, &memorySink{}, nil); err == nil {
		t.Fatal("expected outbox error")
	}
	if _, err := NewRelay(brokenOutbox{}, nil, nil); err == nil {
		t.Fatal("expected sink error")
	}
}
