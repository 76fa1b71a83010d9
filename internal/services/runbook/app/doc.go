// Package app drives a runbook from a command script and rebuilds runbooks
// from exported envelopes.
package app
