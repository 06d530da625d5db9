package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/unify/pkg/kafka"
	"github.com/coreplane/unify/pkg/models"
)

type failingIngester struct{}

func (f *failingIngester) AddCustomerData(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	return nil, errors.New("store unavailable")
}

func TestProcessMessageIngestsRecord(t *testing.T) {
	ingester := &fakeIngester{}
	p := NewIntakeProcessor(ingester, testLogger())

	err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{
		Import: &kafka.ImportMessage{
			Source: "crm",
			Data:   models.CustomerData{Name: "Maria Silva"},
		},
	})
	require.NoError(t, err)

	require.Len(t, ingester.requests, 1)
	assert.Equal(t, "crm", ingester.requests[0].Source)
	assert.Equal(t, "Maria Silva", ingester.requests[0].Data.Name)
}

func TestProcessMessageDropsMessageWithoutSource(t *testing.T) {
	ingester := &fakeIngester{}
	p := NewIntakeProcessor(ingester, testLogger())

	// Malformed for good: dropping beats redelivering forever.
	err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{
		Import: &kafka.ImportMessage{Data: models.CustomerData{Name: "Maria Silva"}},
	})
	assert.NoError(t, err)
	assert.Empty(t, ingester.requests)
}

func TestProcessMessageDropsInvalidRecord(t *testing.T) {
	ingester := &fakeIngester{
		respond: func(req *models.IngestRequest) *models.IngestResult {
			return &models.IngestResult{Status: models.IngestStatusError, Message: "invalid customer data"}
		},
	}
	p := NewIntakeProcessor(ingester, testLogger())

	err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{
		Import: &kafka.ImportMessage{
			Source: "crm",
			Data:   models.CustomerData{Email: "broken"},
		},
	})
	assert.NoError(t, err)
}

func TestProcessMessagePropagatesTransientErrors(t *testing.T) {
	p := NewIntakeProcessor(&failingIngester{}, testLogger())

	// Transient failures must bubble up so the message is redelivered.
	err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{
		Import: &kafka.ImportMessage{
			Source: "crm",
			Data:   models.CustomerData{Name: "Maria Silva"},
		},
	})
	assert.Error(t, err)
}

func TestProcessMessageIgnoresUnparsedMessages(t *testing.T) {
	ingester := &fakeIngester{}
	p := NewIntakeProcessor(ingester, testLogger())

	err := p.ProcessMessage(context.Background(), &kafka.IncomingMessage{})
	assert.NoError(t, err)
	assert.Empty(t, ingester.requests)
}
