package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// Payload keys
const (
	PayloadTitle       = "title"
	PayloadStatus      = "status"
	PayloadDays        = "days"
	PayloadWaitingDays = "waitingDays"
)

// Event is published after a request transaction commits. Except for
// reminders, targets have already received a stored notification carrying Message.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	Request       entity.RequestRef      `json:"request"`
	Actor         string                 `json:"actor"`
	Targets       []string               `json:"targets"`
	Message       string                 `json:"message"`
	Link          string                 `json:"link"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, ref entity.RequestRef, actor string, targets []string, message string) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		Request:       ref,
		Actor:         actor,
		Targets:       append([]string(nil), targets...),
		Message:       message,
		Link:          ref.Link(),
		Payload:       make(map[string]interface{}),
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// WithCorrelation returns a copy linked to an existing correlation chain
func (e *Event) WithCorrelation(correlationID string) *Event {
	c := e.clone()
	c.CorrelationID = correlationID
	return c
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	c := e.clone()
	c.Payload[key] = value
	return c
}

func (e *Event) clone() *Event {
	c := *e
	c.Targets = append([]string(nil), e.Targets...)
	c.Payload = make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		c.Payload[k] = v
	}
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0.0
}

// NotificationType maps the event to the stored notification type
func (e *Event) NotificationType() entity.NotificationType {
	switch e.Type {
	case TypeRequestFinalized:
		return entity.NotificationApproved
	case TypeRequestRejected:
		return entity.NotificationRejected
	case TypeRequestCancelled:
		return entity.NotificationCancelled
	case TypeRequestReminder:
		return entity.NotificationReminder
	default:
		return entity.NotificationApprovalRequest
	}
}
