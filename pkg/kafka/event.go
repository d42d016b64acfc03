package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format shared by every event the pipeline publishes.
// Payload carries the event-specific body; Key is the aggregate identifier
// used for partitioning so events for one order or product stay ordered.
type Envelope struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	Key           string          `json:"key"`
	Entity        string          `json:"entity"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a payload in the standard envelope with a fresh event id
// and the current UTC time.
func NewEnvelope(eventType, key, entity, source string, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Envelope{
		EventID:    uuid.New().String(),
		Type:       eventType,
		Key:        key,
		Entity:     entity,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Payload:    body,
	}, nil
}

// WithCorrelationID sets the correlation id carried through from the request.
func (e *Envelope) WithCorrelationID(id string) *Envelope {
	e.CorrelationID = id
	return e
}

// Marshal serializes the envelope to JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope parses an envelope from JSON.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// DecodePayload unmarshals the event body into target.
func (e *Envelope) DecodePayload(target any) error {
	return json.Unmarshal(e.Payload, target)
}
