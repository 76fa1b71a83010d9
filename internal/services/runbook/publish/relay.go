package publish

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/runbook/internal/platform/logging"
	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
	"github.com/sirupsen/logrus"
)

const defaultRelayBatchSize = 64

// PendingOutbox is the queue a Relay drains.
type PendingOutbox interface {
	ListPending(ctx context.Context, now time.Time, limit int, skipRunbooks ...string) ([]event.Event, error)
	MarkDelivered(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// RelayResult counts the outcome of one drain.
type RelayResult struct {
	Delivered int
	Failed    int
}

// Relay moves queued envelopes to a downstream sink. Within one runbook,
// envelopes after a failed delivery wait for the next drain so downstream
// order matches sequence order.
type Relay struct {
	outbox    PendingOutbox
	sink      EnvelopeSink
	logger    logrus.FieldLogger
	batchSize int
	now       func() time.Time
}

// NewRelay builds a relay. A nil logger discards entries.
func NewRelay(outbox PendingOutbox, sink EnvelopeSink, logger logrus.FieldLogger) (*Relay, error) {
	if outbox == nil {
		return nil, errors.New("outbox is required")
	}
	if sink == nil {
		return nil, errors.New("envelope sink is required")
	}
	return &Relay{
		outbox:    outbox,
		sink:      sink,
		logger:    logging.Component(logger, "relay"),
		batchSize: defaultRelayBatchSize,
		now:       time.Now,
	}, nil
}

// Drain delivers every envelope due now.
func (r *Relay) Drain(ctx context.Context) (RelayResult, error) {
	now := r.now()
	blocked := map[string]bool{}
	var skip []string
	var result RelayResult
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := r.outbox.ListPending(ctx, now, r.batchSize, skip...)
		if err != nil {
			return result, err
		}
		progressed := false
		for _, envelope := range batch {
			if blocked[envelope.RunbookID] {
				continue
			}
			progressed = true
			if err := r.sink.Append(ctx, envelope); err != nil {
				blocked[envelope.RunbookID] = true
				skip = append(skip, envelope.RunbookID)
				r.logger.WithError(err).WithFields(logrus.Fields{
					"runbook_id": envelope.RunbookID,
					"seq":        envelope.Seq,
				}).Warn("relay delivery failed")
				if markErr := r.outbox.MarkFailed(ctx, envelope.ID, err); markErr != nil {
					return result, markErr
				}
				result.Failed++
				continue
			}
			if err := r.outbox.MarkDelivered(ctx, envelope.ID); err != nil {
				return result, err
			}
			result.Delivered++
		}
		// Blocked runbooks are excluded from the next query, so every full
		// batch shrinks the due set.
		if !progressed || len(batch) < r.batchSize {
			break
		}
	}
	if result.Delivered > 0 || result.Failed > 0 {
		r.logger.WithFields(logrus.Fields{
			"delivered": result.Delivered,
			"failed":    result.Failed,
		}).Info("relay drained outbox")
	}
	return result, nil
}
