package publish

import (
	"context"
	"errors"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/runbook"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "runbook"

// Metrics counts published events and publish failures by event type.
type Metrics struct {
	next      runbook.Publisher
	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewMetrics decorates next and registers its counters on reg. Counters
// already registered by another decorator are shared.
func NewMetrics(reg prometheus.Registerer, next runbook.Publisher) (*Metrics, error) {
	if next == nil {
		return nil, errors.New("publisher is required")
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	published, err := registerCounter(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_published_total",
			Help:      "Total number of runbook events accepted by the publish sink",
		},
		[]string{"type"},
	))
	if err != nil {
		return nil, err
	}
	failures, err := registerCounter(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "publish_failures_total",
			Help:      "Total number of runbook events the publish sink rejected",
		},
		[]string{"type"},
	))
	if err != nil {
		return nil, err
	}
	return &Metrics{next: next, published: published, failures: failures}, nil
}

// Publish forwards evt and counts the outcome.
func (m *Metrics) Publish(ctx context.Context, evt runbook.Event) error {
	eventType := string(evt.Type())
	if err := m.next.Publish(ctx, evt); err != nil {
		m.failures.WithLabelValues(eventType).Inc()
		return err
	}
	m.published.WithLabelValues(eventType).Inc()
	return nil
}

// Published returns the counter of accepted events.
func (m *Metrics) Published() *prometheus.CounterVec { return m.published }

// Failures returns the counter of rejected events.
func (m *Metrics) Failures() *prometheus.CounterVec { return m.failures }

func registerCounter(reg prometheus.Registerer, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}
