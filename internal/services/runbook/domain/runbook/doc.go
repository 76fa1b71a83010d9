// Package runbook models a runbook and the tasks it owns as an event-sourced
// aggregate.
//
// Every command handler follows the same path: validate against current
// state, build the event, hand it to the injected Publisher, then apply it.
// Apply is the only place state changes, so live handling and historical
// replay produce identical state.
//
// All invariant checks live on Runbook. Task only exposes the mechanical
// status mutations that Runbook invokes after validation.
package runbook
