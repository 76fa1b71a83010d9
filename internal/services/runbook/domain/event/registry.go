package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	coreencoding "github.com/louisbranch/runbook/internal/services/runbook/domain/core/encoding"
)

var (
	// ErrRunbookIDRequired indicates a missing runbook id.
	ErrRunbookIDRequired = errors.New("runbook id is required")
	// ErrTypeRequired indicates a missing event type.
	ErrTypeRequired = errors.New("event type is required")
	// ErrTypeUnknown indicates an unregistered event type.
	ErrTypeUnknown = errors.New("event type is not registered")
	// ErrTimestampRequired indicates a zero timestamp.
	ErrTimestampRequired = errors.New("event timestamp is required")
	// ErrEntityTypeRequired indicates missing entity type for addressed events.
	ErrEntityTypeRequired = errors.New("entity type is required")
	// ErrEntityIDRequired indicates missing entity id for addressed events.
	ErrEntityIDRequired = errors.New("entity id is required")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
	// ErrPayloadHashMismatch indicates a stored payload that no longer
	// matches the hash recorded with it.
	ErrPayloadHashMismatch = errors.New("payload hash does not match payload")
)

// AddressingPolicy declares whether an event must name the entity it targets.
type AddressingPolicy string

const (
	// AddressingPolicyNone leaves entity addressing optional.
	AddressingPolicyNone AddressingPolicy = "none"
	// AddressingPolicyEntityTarget requires entity type and id.
	AddressingPolicyEntityTarget AddressingPolicy = "entity_target"
)

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event type.
type Definition struct {
	Type            Type
	Addressing      AddressingPolicy
	ValidatePayload PayloadValidator
}

// Registry stores event definitions and validates envelopes.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new event type definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return ErrTypeRequired
	}
	switch def.Addressing {
	case "":
		def.Addressing = AddressingPolicyNone
	case AddressingPolicyNone, AddressingPolicyEntityTarget:
		// allowed
	default:
		return fmt.Errorf("addressing policy %q is invalid", def.Addressing)
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("event type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// Definition returns the definition for a type.
func (r *Registry) Definition(t Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[t]
	return def, ok
}

// Types returns the registered types in lexical order.
func (r *Registry) Types() []Type {
	if r == nil {
		return nil
	}
	types := make([]Type, 0, len(r.definitions))
	for t := range r.definitions {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ValidateForAppend validates and normalizes an envelope before it is handed
// to a transport. The payload is rewritten as canonical JSON and hashed.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	evt.RunbookID = strings.TrimSpace(evt.RunbookID)
	if evt.RunbookID == "" {
		return Event{}, ErrRunbookIDRequired
	}
	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	if evt.Type == "" {
		return Event{}, ErrTypeRequired
	}
	def, ok := r.Definition(evt.Type)
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrTypeUnknown, evt.Type)
	}
	if evt.Timestamp.IsZero() {
		return Event{}, ErrTimestampRequired
	}
	evt.Timestamp = evt.Timestamp.UTC()

	evt.ActorID = strings.TrimSpace(evt.ActorID)
	evt.EntityType = strings.TrimSpace(evt.EntityType)
	evt.EntityID = strings.TrimSpace(evt.EntityID)
	if def.Addressing == AddressingPolicyEntityTarget {
		if evt.EntityType == "" {
			return Event{}, ErrEntityTypeRequired
		}
		if evt.EntityID == "" {
			return Event{}, ErrEntityIDRequired
		}
	}

	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = json.RawMessage("{}")
	}
	if !json.Valid(evt.PayloadJSON) {
		return Event{}, ErrPayloadInvalid
	}
	canonical, err := coreencoding.CanonicalJSON(evt.PayloadJSON)
	if err != nil {
		return Event{}, fmt.Errorf("canonical payload json: %w", err)
	}
	evt.PayloadJSON = canonical
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(evt.PayloadJSON); err != nil {
			return Event{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	hash, err := coreencoding.ContentHash(evt.PayloadJSON)
	if err != nil {
		return Event{}, fmt.Errorf("hash payload: %w", err)
	}
	evt.PayloadHash = hash
	return evt, nil
}

// ValidateStored validates an envelope read back from an export. On top of
// ValidateForAppend it checks a recorded payload hash against the payload.
func (r *Registry) ValidateStored(evt Event) (Event, error) {
	recorded := strings.TrimSpace(evt.PayloadHash)
	validated, err := r.ValidateForAppend(evt)
	if err != nil {
		return Event{}, err
	}
	if recorded != "" && recorded != validated.PayloadHash {
		return Event{}, fmt.Errorf("%w: envelope %s", ErrPayloadHashMismatch, validated.ID)
	}
	return validated, nil
}
