// Package migrations contains embedded SQL migrations for the SQLite outbox.
package migrations

import "embed"

//go:embed outbox/*.sql
var OutboxFS embed.FS
