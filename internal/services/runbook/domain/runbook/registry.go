package runbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/runbook/internal/services/runbook/domain/event"
)

const (
	entityTypeRunbook = "runbook"
	entityTypeTask    = "task"
)

// ErrPayloadFieldRequired indicates a payload missing an identifying field.
var ErrPayloadFieldRequired = errors.New("payload field is required")

// RegisterEvents registers runbook events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	if err := registry.Register(event.Definition{
		Type:            EventTypeRunbookCreated,
		Addressing:      event.AddressingPolicyEntityTarget,
		ValidatePayload: validateRunbookCreatedPayload,
	}); err != nil {
		return err
	}
	if err := registry.Register(event.Definition{
		Type:            EventTypeTaskAdded,
		Addressing:      event.AddressingPolicyEntityTarget,
		ValidatePayload: validateTaskAddedPayload,
	}); err != nil {
		return err
	}
	if err := registry.Register(event.Definition{
		Type:            EventTypeTaskMarkedInProgress,
		Addressing:      event.AddressingPolicyEntityTarget,
		ValidatePayload: validateTaskMarkedInProgressPayload,
	}); err != nil {
		return err
	}
	if err := registry.Register(event.Definition{
		Type:            EventTypeTaskCompleted,
		Addressing:      event.AddressingPolicyEntityTarget,
		ValidatePayload: validateTaskCompletedPayload,
	}); err != nil {
		return err
	}
	return registry.Register(event.Definition{
		Type:            EventTypeRunbookCompleted,
		Addressing:      event.AddressingPolicyEntityTarget,
		ValidatePayload: validateRunbookCompletedPayload,
	})
}

// Encode converts a domain event into an envelope addressed to the runbook or
// task it affects. Identity, sequence, and timestamp are left to the caller.
func Encode(runbookID string, evt Event) (event.Event, error) {
	if evt == nil {
		return event.Event{}, errors.New("event is required")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("marshal %s payload: %w", evt.Type(), err)
	}
	entityType, entityID := addressOf(runbookID, evt)
	return event.Event{
		RunbookID:   runbookID,
		Type:        evt.Type(),
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: payload,
	}, nil
}

// Decode converts an envelope back into its domain event.
func Decode(evt event.Event) (Event, error) {
	switch evt.Type {
	case EventTypeRunbookCreated:
		return decodePayload[RunbookCreated](evt)
	case EventTypeTaskAdded:
		return decodePayload[TaskAdded](evt)
	case EventTypeTaskMarkedInProgress:
		return decodePayload[TaskMarkedInProgress](evt)
	case EventTypeTaskCompleted:
		return decodePayload[TaskCompleted](evt)
	case EventTypeRunbookCompleted:
		return decodePayload[RunbookCompleted](evt)
	default:
		return nil, fmt.Errorf("%w: %s", event.ErrTypeUnknown, evt.Type)
	}
}

// DecodeAll decodes envelopes in order, stopping at the first failure.
func DecodeAll(envelopes []event.Event) ([]Event, error) {
	events := make([]Event, 0, len(envelopes))
	for _, envelope := range envelopes {
		evt, err := Decode(envelope)
		if err != nil {
			return nil, fmt.Errorf("decode seq %d: %w", envelope.Seq, err)
		}
		events = append(events, evt)
	}
	return events, nil
}

func decodePayload[T Event](evt event.Event) (Event, error) {
	var payload T
	raw := evt.PayloadJSON
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", evt.Type, err)
	}
	return payload, nil
}

func addressOf(runbookID string, evt Event) (string, string) {
	switch e := evt.(type) {
	case TaskAdded:
		return entityTypeTask, e.TaskID
	case TaskMarkedInProgress:
		return entityTypeTask, e.TaskID
	case TaskCompleted:
		return entityTypeTask, e.TaskID
	case RunbookCreated:
		return entityTypeRunbook, e.RunbookID
	default:
		return entityTypeRunbook, runbookID
	}
}

func validateRunbookCreatedPayload(raw json.RawMessage) error {
	var payload RunbookCreated
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return requireField("runbook_id", payload.RunbookID)
}

func validateTaskAddedPayload(raw json.RawMessage) error {
	var payload TaskAdded
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return requireField("task_id", payload.TaskID)
}

func validateTaskMarkedInProgressPayload(raw json.RawMessage) error {
	var payload TaskMarkedInProgress
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return requireField("task_id", payload.TaskID)
}

func validateTaskCompletedPayload(raw json.RawMessage) error {
	var payload TaskCompleted
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return requireField("task_id", payload.TaskID)
}

func validateRunbookCompletedPayload(raw json.RawMessage) error {
	var payload RunbookCompleted
	return json.Unmarshal(raw, &payload)
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", ErrPayloadFieldRequired, name)
	}
	return nil
}
