package event

import (
	"encoding/json"
	"time"
)

// Type identifies the event type string.
type Type string

// Event is the envelope carried by publication transports.
type Event struct {
	ID          string          `json:"id"`
	RunbookID   string          `json:"runbook_id"`
	Seq         uint64          `json:"seq"`
	Type        Type            `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	ActorID     string          `json:"actor_id,omitempty"`
	EntityType  string          `json:"entity_type,omitempty"`
	EntityID    string          `json:"entity_id,omitempty"`
	PayloadJSON json.RawMessage `json:"payload"`
	PayloadHash string          `json:"payload_hash,omitempty"`
}
