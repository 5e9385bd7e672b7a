package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/domain/workflow"
)

// Payload keys shared by publishers and handlers
const (
	PayloadIntents    = "intents"
	PayloadAudit      = "audit"
	PayloadFromStatus = "from_status"
	PayloadToStatus   = "to_status"
	PayloadActorID    = "actor_id"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	FormID        int64                  `json:"form_id"`
	FormKind      entity.FormKind        `json:"form_kind"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, form *entity.Form, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, form, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, form *entity.Form, payload map[string]interface{}, correlationID string) *Event {
	evt := &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
	if form != nil {
		evt.FormID = form.ID
		evt.FormKind = form.Kind
	}
	if evt.Payload == nil {
		evt.Payload = make(map[string]interface{})
	}
	return evt
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case entity.Status:
			return string(v)
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// Audit returns the audit record carried by the event, if any
func (e *Event) Audit() *entity.AuditEvent {
	if a, ok := e.Payload[PayloadAudit].(*entity.AuditEvent); ok {
		return a
	}
	return nil
}

// Intents returns the notification intents carried by the event
func (e *Event) Intents() []workflow.Intent {
	if in, ok := e.Payload[PayloadIntents].([]workflow.Intent); ok {
		return in
	}
	return nil
}
