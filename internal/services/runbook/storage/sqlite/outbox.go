package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
)

// Outbox row statuses.
const (
	StatusPending   = "pending"
	StatusFailed    = "failed"
	StatusDelivered = "delivered"
	StatusDead      = "dead"
)

const outboxDeadLetterThreshold = 8

var (
	// ErrDuplicateEnvelope indicates an envelope id or runbook sequence that is
	// already queued.
	ErrDuplicateEnvelope = errors.New("envelope already queued")
	// ErrEntryNotFound indicates an id with no matching undelivered row.
	ErrEntryNotFound = errors.New("outbox entry not found")
)

// Entry describes one outbox row for inspection tooling.
type Entry struct {
	Event         event.Event
	Status        string
	AttemptCount  int
	NextAttemptAt time.Time
	LastError     string
	UpdatedAt     time.Time
}

// Summary reports outbox depth by status.
type Summary struct {
	PendingCount     int
	FailedCount      int
	DeliveredCount   int
	DeadCount        int
	OldestPendingID  string
	OldestPendingSeq uint64
}

// Append queues an envelope for delivery.
func (s *Store) Append(ctx context.Context, evt event.Event) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(evt.ID) == "" {
		return fmt.Errorf("envelope id is required")
	}
	if evt.Seq == 0 {
		return fmt.Errorf("event sequence must be greater than zero")
	}
	now := s.now()
	payload := []byte(evt.PayloadJSON)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO outbox (
		    id, runbook_id, seq, event_type, occurred_at, actor_id, entity_type, entity_id,
		    payload_json, payload_hash, status, attempt_count, next_attempt_at, last_error, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', 0, ?, '', ?)`,
		evt.ID,
		evt.RunbookID,
		int64(evt.Seq),
		string(evt.Type),
		toMillis(evt.Timestamp),
		evt.ActorID,
		evt.EntityType,
		evt.EntityID,
		payload,
		evt.PayloadHash,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: %s/%d", ErrDuplicateEnvelope, evt.RunbookID, evt.Seq)
		}
		return fmt.Errorf("append outbox envelope: %w", err)
	}
	return nil
}

// ListPending returns up to limit envelopes due for delivery at now, ordered
// by runbook and sequence. Rows of the runbooks named in skipRunbooks are
// left out.
func (s *Store) ListPending(ctx context.Context, now time.Time, limit int, skipRunbooks ...string) ([]event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []event.Event{}, nil
	}
	if now.IsZero() {
		now = s.now()
	}
	query := `SELECT id, runbook_id, seq, event_type, occurred_at, actor_id, entity_type, entity_id, payload_json, payload_hash
		 FROM outbox
		 WHERE status IN ('pending', 'failed') AND next_attempt_at <= ?`
	args := []any{toMillis(now)}
	if len(skipRunbooks) > 0 {
		query += " AND runbook_id NOT IN (?" + strings.Repeat(", ?", len(skipRunbooks)-1) + ")"
		for _, id := range skipRunbooks {
			args = append(args, id)
		}
	}
	query += " ORDER BY runbook_id, seq LIMIT ?"
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list due outbox rows: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		evt, err := scanEnvelope(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due outbox rows: %w", err)
	}
	return events, nil
}

// MarkDelivered records a successful delivery.
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE outbox
		 SET status = 'delivered', last_error = '', updated_at = ?
		 WHERE id = ? AND status IN ('pending', 'failed')`,
		toMillis(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox row %s delivered: %w", id, err)
	}
	return ensureSingleRow(result, id)
}

// MarkFailed records a failed delivery attempt and schedules a retry. Rows
// that keep failing move to the dead status and are no longer listed.
func (s *Store) MarkFailed(ctx context.Context, id string, cause error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	var attempts int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT attempt_count FROM outbox WHERE id = ? AND status IN ('pending', 'failed')`,
		id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return fmt.Errorf("load outbox row %s: %w", id, err)
	}

	now := s.now()
	attempt := attempts + 1
	status := StatusFailed
	if attempt >= outboxDeadLetterThreshold {
		status = StatusDead
	}
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE outbox
		 SET status = ?,
		     attempt_count = ?,
		     next_attempt_at = ?,
		     last_error = ?,
		     updated_at = ?
		 WHERE id = ? AND status IN ('pending', 'failed')`,
		status,
		attempt,
		toMillis(now.Add(retryBackoff(attempt))),
		lastError,
		toMillis(now),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox row %s failed: %w", id, err)
	}
	return ensureSingleRow(result, id)
}

// Entries lists rows in sequence order, optionally filtered by status.
func (s *Store) Entries(ctx context.Context, status string, limit int) ([]Entry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Entry{}, nil
	}
	normalized, err := normalizeStatus(status)
	if err != nil {
		return nil, err
	}

	const selectEntries = `SELECT id, runbook_id, seq, event_type, occurred_at, actor_id, entity_type, entity_id, payload_json, payload_hash,
		    status, attempt_count, next_attempt_at, last_error, updated_at
		 FROM outbox`
	var rows *sql.Rows
	if normalized == "" {
		rows, err = s.sqlDB.QueryContext(ctx, selectEntries+` ORDER BY runbook_id, seq LIMIT ?`, limit)
	} else {
		rows, err = s.sqlDB.QueryContext(ctx, selectEntries+` WHERE status = ? ORDER BY runbook_id, seq LIMIT ?`, normalized, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list outbox rows: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry       Entry
			seq         int64
			occurredAt  int64
			payload     []byte
			nextAttempt int64
			updatedAt   int64
		)
		if err := rows.Scan(
			&entry.Event.ID,
			&entry.Event.RunbookID,
			&seq,
			&entry.Event.Type,
			&occurredAt,
			&entry.Event.ActorID,
			&entry.Event.EntityType,
			&entry.Event.EntityID,
			&payload,
			&entry.Event.PayloadHash,
			&entry.Status,
			&entry.AttemptCount,
			&nextAttempt,
			&entry.LastError,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		entry.Event.Seq = uint64(seq)
		entry.Event.Timestamp = fromMillis(occurredAt)
		entry.Event.PayloadJSON = payload
		entry.NextAttemptAt = fromMillis(nextAttempt)
		entry.UpdatedAt = fromMillis(updatedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return entries, nil
}

// Summary returns queue depth by status and the oldest undelivered row.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	if err := s.ready(ctx); err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("query outbox summary counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan outbox summary count: %w", err)
		}
		switch status {
		case StatusPending:
			summary.PendingCount = count
		case StatusFailed:
			summary.FailedCount = count
		case StatusDelivered:
			summary.DeliveredCount = count
		case StatusDead:
			summary.DeadCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate outbox summary counts: %w", err)
	}

	var (
		id  string
		seq int64
	)
	err = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, seq FROM outbox
		 WHERE status IN ('pending', 'failed')
		 ORDER BY next_attempt_at ASC, seq ASC
		 LIMIT 1`,
	).Scan(&id, &seq)
	if err == nil {
		summary.OldestPendingID = id
		summary.OldestPendingSeq = uint64(seq)
		return summary, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return summary, nil
	}
	return Summary{}, fmt.Errorf("query oldest pending outbox row: %w", err)
}

func scanEnvelope(rows *sql.Rows) (event.Event, error) {
	var (
		evt        event.Event
		seq        int64
		occurredAt int64
		payload    []byte
	)
	if err := rows.Scan(
		&evt.ID,
		&evt.RunbookID,
		&seq,
		&evt.Type,
		&occurredAt,
		&evt.ActorID,
		&evt.EntityType,
		&evt.EntityID,
		&payload,
		&evt.PayloadHash,
	); err != nil {
		return event.Event{}, fmt.Errorf("scan outbox envelope: %w", err)
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(occurredAt)
	evt.PayloadJSON = payload
	return evt, nil
}

func normalizeStatus(status string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case "", StatusPending, StatusFailed, StatusDelivered, StatusDead:
		return normalized, nil
	default:
		return "", fmt.Errorf("invalid outbox status %q", status)
	}
}

func ensureSingleRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("outbox row %s rows affected: %w", id, err)
	}
	if affected != 1 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return nil
}

func retryBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	backoff := time.Second << (attempt - 1)
	if backoff > 5*time.Minute {
		return 5 * time.Minute
	}
	return backoff
}
