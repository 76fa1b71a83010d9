// Package event defines the event envelope and event-type registry used when
// runbook domain events leave the aggregate.
//
// Domain events are typed values inside the aggregate. Sinks that need a
// transport-neutral shape (logs, outbox rows, exported histories) wrap them in
// an Event envelope whose payload is canonical JSON, so the same fact always
// produces the same bytes and hash.
package event
