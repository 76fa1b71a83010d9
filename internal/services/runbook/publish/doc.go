// Package publish provides the sinks a runbook hands its events to.
//
// Domain-level sinks implement runbook.Publisher and can be stacked:
// Metrics(Traced(Fanout(Logger, Envelope))) is the usual chain. Envelope
// turns domain events into addressed envelopes for an EnvelopeSink such as
// the SQLite outbox, and Relay drains that outbox to a downstream transport.
package publish
