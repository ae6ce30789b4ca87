package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MutationEvent tells other sessions that an entity in a scope was mutated.
// It carries no entity data; receivers refetch the scope if they hold it.
type MutationEvent struct {
	EventID   uuid.UUID `json:"eventId"`
	Resource  string    `json:"resource"`
	Scope     string    `json:"scope"`
	EntityID  string    `json:"entityId"`
	Outcome   string    `json:"outcome"`
	Session   string    `json:"session"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMutationEvent creates an event with a fresh id and the current time.
func NewMutationEvent(resource, scope, entityID, outcome, session string) *MutationEvent {
	return &MutationEvent{
		EventID:   uuid.New(),
		Resource:  resource,
		Scope:     scope,
		EntityID:  entityID,
		Outcome:   outcome,
		Session:   session,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *MutationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MutationEventFromJSON parses an event. Events without a scope are rejected.
func MutationEventFromJSON(data []byte) (*MutationEvent, error) {
	var msg MutationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Scope == "" {
		return nil, errors.New("mutation event has no scope")
	}
	return &msg, nil
}
