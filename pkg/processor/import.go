// Package processor drives bulk ingestion: batch imports over HTTP and
// single-record intake from the import topic.
package processor

import (
	"context"
	"hash/fnv"
	"net/http"
	"strings"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/normalizers"
	"github.com/coreplane/unify/pkg/tracing"
	"github.com/coreplane/unify/pkg/validation"
)

// Ingester is the single-record ingestion entry point.
type Ingester interface {
	AddCustomerData(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error)
}

// ImportProcessor processes import batches with a sharded worker pool.
// Records are routed to workers by identity key so two observations of the
// same customer never race each other into duplicate golden records.
type ImportProcessor struct {
	ingester Ingester
	logger   ectologger.Logger
	workers  int
}

// NewImportProcessor creates a new import processor
func NewImportProcessor(ingester Ingester, logger ectologger.Logger, workers int) *ImportProcessor {
	if workers < 1 {
		workers = 4
	}
	return &ImportProcessor{
		ingester: ingester,
		logger:   logger,
		workers:  workers,
	}
}

// ProcessBatch ingests every record of the request and aggregates the
// per-record outcomes. A batch where invalid records outnumber half the valid
// ones is rejected up front.
func (p *ImportProcessor) ProcessBatch(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.ImportProcessor.ProcessBatch")
	defer span.End()

	valid, invalid := 0, 0
	for i := range req.Records {
		if len(validation.ValidateCustomerData(&req.Records[i].Data)) == 0 {
			valid++
		} else {
			invalid++
		}
	}
	if invalid*2 > valid {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"valid":   valid,
			"invalid": invalid,
		}).Warn("Rejected import batch with too many invalid records")
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "too many invalid records: %d of %d", invalid, len(req.Records))
	}

	results := make([]models.IngestResult, len(req.Records))

	type job struct {
		index  int
		record *models.ImportRecord
	}

	queues := make([]chan job, p.workers)
	for i := range queues {
		queues[i] = make(chan job)
	}

	var wg sync.WaitGroup
	for _, queue := range queues {
		wg.Add(1)
		go func(queue chan job) {
			defer wg.Done()
			for j := range queue {
				results[j.index] = p.ingest(ctx, req, j.record)
			}
		}(queue)
	}

	for i := range req.Records {
		record := &req.Records[i]
		queues[p.shard(&record.Data)] <- job{index: i, record: record}
	}
	for _, queue := range queues {
		close(queue)
	}
	wg.Wait()

	result := &models.ImportResult{
		Processed: len(results),
		Results:   results,
	}
	for i := range results {
		switch results[i].Status {
		case models.IngestStatusCreated:
			result.Created++
		case models.IngestStatusUpdated:
			result.Updated++
		case models.IngestStatusConflictDetected:
			result.Conflicts++
		default:
			result.Errors++
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"processed": result.Processed,
		"created":   result.Created,
		"updated":   result.Updated,
		"conflicts": result.Conflicts,
		"errors":    result.Errors,
	}).Info("Processed import batch")

	return result, nil
}

func (p *ImportProcessor) ingest(ctx context.Context, req *models.ImportRequest, record *models.ImportRecord) models.IngestResult {
	source := record.Source
	if source == "" {
		source = req.Source
	}

	result, err := p.ingester.AddCustomerData(ctx, &models.IngestRequest{
		Data:       record.Data,
		Source:     source,
		ForceMerge: req.ForceMerge,
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Import record failed")
		return models.IngestResult{
			Status:  models.IngestStatusError,
			Message: err.Error(),
		}
	}
	return *result
}

// shard picks the worker for a record. Records sharing a document or, absent
// that, an email land on the same worker; records with neither key have no
// identity to race on and can go anywhere. The guarantee only holds within
// one key level: a record carrying a document and one carrying only the
// shared email hash independently and can still race. That pair resolves to
// the same customer through the candidate lookup either way; the race can at
// worst order their merges differently.
func (p *ImportProcessor) shard(data *models.CustomerData) int {
	key := normalizers.Document(data.Document)
	if key == "" {
		key = normalizers.Email(data.Email)
	}
	if key == "" {
		key = strings.Join(normalizers.NameTokens(data.Name), " ")
	}

	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.workers))
}
