package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/coreplane/unify/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeCustomerCreated  EventType = "customer.created"
	EventTypeCustomerUpdated  EventType = "customer.updated"
	EventTypeCustomerDeleted  EventType = "customer.deleted"
	EventTypeConflictDetected EventType = "customer.conflict_detected"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// CustomerCreatedEvent is emitted when a new unified customer is created
type CustomerCreatedEvent struct {
	BaseEvent
	CustomerID      string              `json:"customer_id"`
	Data            models.CustomerData `json:"data"`
	Sources         []string            `json:"sources"`
	ConfidenceScore float64             `json:"confidence_score"`
}

// CustomerUpdatedEvent is emitted when an incoming record is merged into an
// existing unified customer
type CustomerUpdatedEvent struct {
	BaseEvent
	CustomerID      string              `json:"customer_id"`
	Data            models.CustomerData `json:"data"`
	Sources         []string            `json:"sources"`
	ConfidenceScore float64             `json:"confidence_score"`
	MatchScore      float64             `json:"match_score"`
	ChangedFields   []string            `json:"changed_fields,omitempty"`
	Forced          bool                `json:"forced,omitempty"`
}

// CustomerDeletedEvent is emitted when a unified customer is deleted
type CustomerDeletedEvent struct {
	BaseEvent
	CustomerID string `json:"customer_id"`
}

// ConflictDetectedEvent is emitted when an incoming record matched an
// existing customer but carried conflicting field values, so no merge was
// applied
type ConflictDetectedEvent struct {
	BaseEvent
	CustomerID string              `json:"customer_id"`
	Data       models.CustomerData `json:"data"`
	MatchScore float64             `json:"match_score"`
	Conflicts  map[string]string   `json:"conflicts"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
