package processor

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/coreplane/unify/pkg/kafka"
	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/tracing"
)

// IntakeProcessor ingests single records arriving on the import topic.
type IntakeProcessor struct {
	ingester Ingester
	logger   ectologger.Logger
}

// NewIntakeProcessor creates a new intake processor
func NewIntakeProcessor(ingester Ingester, logger ectologger.Logger) *IntakeProcessor {
	return &IntakeProcessor{
		ingester: ingester,
		logger:   logger,
	}
}

// ProcessMessage handles one import message. Records rejected by validation
// are logged and dropped; returning an error would make the consumer retry a
// record that can never succeed.
func (p *IntakeProcessor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.IntakeProcessor.ProcessMessage")
	defer span.End()

	if msg.Import == nil {
		return nil
	}
	if msg.Import.Source == "" {
		// Permanently malformed; retrying will never help.
		p.logger.WithContext(ctx).WithFields(map[string]any{"offset": msg.Offset}).Warn("Dropped import message without source")
		return nil
	}

	result, err := p.ingester.AddCustomerData(ctx, &models.IngestRequest{
		Data:       msg.Import.Data,
		Source:     msg.Import.Source,
		ForceMerge: msg.Import.ForceMerge,
	})
	if err != nil {
		return err
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"status":      result.Status,
		"customer_id": result.CustomerID,
		"source":      msg.Import.Source,
		"offset":      msg.Offset,
	})
	if result.Status == models.IngestStatusError {
		log.WithFields(map[string]any{"message": result.Message}).Warn("Dropped invalid import record")
		return nil
	}

	log.Debug("Processed import record")
	return nil
}
