// Package events handles event emission for customer lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/coreplane/unify/pkg/kafka"
	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes customer lifecycle events. A nil producer disables
// emission, so callers never need to guard for a broker-less deployment.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitCustomerCreated emits a customer created event
func (e *Emitter) EmitCustomerCreated(ctx context.Context, customer *models.UnifiedCustomer, source string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCustomerCreated")
	defer span.End()

	event := &CustomerCreatedEvent{
		BaseEvent:       NewBaseEvent(EventTypeCustomerCreated, source),
		CustomerID:      customer.ID,
		Data:            customer.Data,
		Sources:         customer.Sources,
		ConfidenceScore: customer.ConfidenceScore,
	}

	return e.publish(ctx, customer.ID, event.BaseEvent, event)
}

// EmitCustomerUpdated emits a customer updated event
func (e *Emitter) EmitCustomerUpdated(ctx context.Context, customer *models.UnifiedCustomer, source string, matchScore float64, changedFields []string, forced bool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCustomerUpdated")
	defer span.End()

	event := &CustomerUpdatedEvent{
		BaseEvent:       NewBaseEvent(EventTypeCustomerUpdated, source),
		CustomerID:      customer.ID,
		Data:            customer.Data,
		Sources:         customer.Sources,
		ConfidenceScore: customer.ConfidenceScore,
		MatchScore:      matchScore,
		ChangedFields:   changedFields,
		Forced:          forced,
	}

	return e.publish(ctx, customer.ID, event.BaseEvent, event)
}

// EmitCustomerDeleted emits a customer deleted event
func (e *Emitter) EmitCustomerDeleted(ctx context.Context, customerID string, source string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCustomerDeleted")
	defer span.End()

	event := &CustomerDeletedEvent{
		BaseEvent:  NewBaseEvent(EventTypeCustomerDeleted, source),
		CustomerID: customerID,
	}

	return e.publish(ctx, customerID, event.BaseEvent, event)
}

// EmitConflictDetected emits a conflict detected event
func (e *Emitter) EmitConflictDetected(ctx context.Context, customerID string, data *models.CustomerData, source string, matchScore float64, conflicts map[string]string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitConflictDetected")
	defer span.End()

	event := &ConflictDetectedEvent{
		BaseEvent:  NewBaseEvent(EventTypeConflictDetected, source),
		CustomerID: customerID,
		Data:       *data,
		MatchScore: matchScore,
		Conflicts:  conflicts,
	}

	return e.publish(ctx, customerID, event.BaseEvent, event)
}

func (e *Emitter) publish(ctx context.Context, key string, base BaseEvent, payload any) error {
	if e.producer == nil {
		return nil
	}

	err := e.producer.PublishEvent(ctx, kafka.OutboundEvent{
		Key:       key,
		EventType: string(base.EventType),
		Source:    base.Source,
		Payload:   payload,
	})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": base.EventType,
		}).Error("Failed to emit event")
		return err
	}

	return nil
}
