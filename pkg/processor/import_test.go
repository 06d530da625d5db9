package processor

import (
	"context"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/unify/pkg/models"
)

type fakeIngester struct {
	mu       sync.Mutex
	requests []*models.IngestRequest
	respond  func(req *models.IngestRequest) *models.IngestResult
}

func (f *fakeIngester) AddCustomerData(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.respond != nil {
		return f.respond(req), nil
	}
	return &models.IngestResult{Status: models.IngestStatusCreated}, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestProcessBatchAggregatesOutcomes(t *testing.T) {
	ingester := &fakeIngester{
		respond: func(req *models.IngestRequest) *models.IngestResult {
			switch req.Data.Name {
			case "update-me":
				return &models.IngestResult{Status: models.IngestStatusUpdated}
			case "conflict-me":
				return &models.IngestResult{Status: models.IngestStatusConflictDetected}
			default:
				return &models.IngestResult{Status: models.IngestStatusCreated}
			}
		},
	}
	p := NewImportProcessor(ingester, testLogger(), 4)

	req := &models.ImportRequest{
		Source: "crm",
		Records: []models.ImportRecord{
			{Data: models.CustomerData{Name: "Maria Silva"}},
			{Data: models.CustomerData{Name: "update-me"}},
			{Data: models.CustomerData{Name: "conflict-me"}},
		},
	}

	result, err := p.ProcessBatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Conflicts)
	assert.Zero(t, result.Errors)
	assert.Len(t, result.Results, 3)
}

func TestProcessBatchRejectsTooManyInvalidRecords(t *testing.T) {
	ingester := &fakeIngester{}
	p := NewImportProcessor(ingester, testLogger(), 2)

	// Two invalid records against one valid: rejected before any ingestion.
	req := &models.ImportRequest{
		Source: "crm",
		Records: []models.ImportRecord{
			{Data: models.CustomerData{Name: "Maria Silva"}},
			{Data: models.CustomerData{Email: "broken"}},
			{Data: models.CustomerData{Document: "123"}},
		},
	}

	_, err := p.ProcessBatch(context.Background(), req)
	assert.Error(t, err)
	assert.Empty(t, ingester.requests)
}

func TestProcessBatchRecordSourceOverridesBatchSource(t *testing.T) {
	ingester := &fakeIngester{}
	p := NewImportProcessor(ingester, testLogger(), 1)

	req := &models.ImportRequest{
		Source: "crm",
		Records: []models.ImportRecord{
			{Data: models.CustomerData{Name: "Maria Silva"}},
			{Data: models.CustomerData{Name: "Joana Souza"}, Source: "billing"},
		},
	}

	_, err := p.ProcessBatch(context.Background(), req)
	require.NoError(t, err)

	sources := map[string]string{}
	for _, ingested := range ingester.requests {
		sources[ingested.Data.Name] = ingested.Source
	}
	assert.Equal(t, "crm", sources["Maria Silva"])
	assert.Equal(t, "billing", sources["Joana Souza"])
}

func TestProcessBatchMarksFailedRecords(t *testing.T) {
	ingester := &fakeIngester{
		respond: func(req *models.IngestRequest) *models.IngestResult {
			return &models.IngestResult{Status: models.IngestStatusError, Message: "boom"}
		},
	}
	p := NewImportProcessor(ingester, testLogger(), 2)

	req := &models.ImportRequest{
		Source: "crm",
		Records: []models.ImportRecord{
			{Data: models.CustomerData{Name: "Maria Silva"}},
		},
	}

	result, err := p.ProcessBatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
}

func TestShardIsStablePerIdentity(t *testing.T) {
	p := NewImportProcessor(&fakeIngester{}, testLogger(), 8)

	// Formatting differences must not split one identity across workers.
	a := &models.CustomerData{Document: "123.456.789-01"}
	b := &models.CustomerData{Document: "12345678901", Name: "Maria Silva"}
	assert.Equal(t, p.shard(a), p.shard(b))

	// Without a document the email is the identity key.
	c := &models.CustomerData{Email: "Maria@Example.com"}
	d := &models.CustomerData{Email: "maria@example.com"}
	assert.Equal(t, p.shard(c), p.shard(d))
}
