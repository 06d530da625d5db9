package audit

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/unify/pkg/models"
)

type fakeLister struct {
	customers []models.UnifiedCustomer
}

func (f *fakeLister) List(ctx context.Context, page, size int) (*models.CustomerListResponse, error) {
	start := (page - 1) * size
	if start >= len(f.customers) {
		return &models.CustomerListResponse{Items: []models.UnifiedCustomer{}}, nil
	}
	end := start + size
	if end > len(f.customers) {
		end = len(f.customers)
	}
	return &models.CustomerListResponse{Items: f.customers[start:end]}, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func goodCustomer(id, document, email string) models.UnifiedCustomer {
	now := time.Now()
	return models.UnifiedCustomer{
		ID:              id,
		Data:            models.CustomerData{Name: "Maria Silva", Document: document, Email: email},
		CreatedAt:       now,
		UpdatedAt:       now,
		Sources:         models.SourceList{"crm"},
		ConfidenceScore: 1.0,
	}
}

func TestCheckCustomer(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.UnifiedCustomer)
		expected string
	}{
		{"missing id", func(c *models.UnifiedCustomer) { c.ID = "" }, "customer without id"},
		{"empty data", func(c *models.UnifiedCustomer) { c.Data = models.CustomerData{} }, "customer without data"},
		{"updated before created", func(c *models.UnifiedCustomer) { c.UpdatedAt = c.CreatedAt.Add(-time.Hour) }, "updated before created"},
		{"confidence out of range", func(c *models.UnifiedCustomer) { c.ConfidenceScore = 1.5 }, "confidence score out of range"},
		{"no sources", func(c *models.UnifiedCustomer) { c.Sources = nil }, "customer without sources"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customer := goodCustomer("c1", "12345678901", "maria@example.com")
			tt.mutate(&customer)
			assert.Contains(t, CheckCustomer(&customer), tt.expected)
		})
	}

	t.Run("clean customer", func(t *testing.T) {
		customer := goodCustomer("c1", "12345678901", "maria@example.com")
		assert.Empty(t, CheckCustomer(&customer))
	})
}

func TestRunHealthyBase(t *testing.T) {
	lister := &fakeLister{customers: []models.UnifiedCustomer{
		goodCustomer("c1", "11111111112", "a@example.com"),
		goodCustomer("c2", "22222222223", "b@example.com"),
	}}
	auditor := NewAuditor(lister, testLogger())

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.IsHealthy)
	assert.Equal(t, 2, report.TotalCustomers)
	assert.Zero(t, report.CustomersWithIssues)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Recommendations)
}

func TestRunDetectsDuplicates(t *testing.T) {
	lister := &fakeLister{customers: []models.UnifiedCustomer{
		goodCustomer("c1", "11111111112", "a@example.com"),
		goodCustomer("c2", "11111111112", "b@example.com"),
		goodCustomer("c3", "22222222223", "b@example.com"),
	}}
	auditor := NewAuditor(lister, testLogger())

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.IsHealthy)
	assert.Equal(t, 1, report.DuplicateDocuments)
	assert.Equal(t, 1, report.DuplicateEmails)
	assert.Contains(t, report.Recommendations, "investigate duplicate documents")
	assert.Contains(t, report.Recommendations, "investigate duplicate emails")
}

func TestRunFlagsIssueCustomers(t *testing.T) {
	broken := goodCustomer("deadbeef-0000-0000-0000-000000000000", "11111111112", "a@example.com")
	broken.Sources = nil

	lister := &fakeLister{customers: []models.UnifiedCustomer{
		broken,
		goodCustomer("c2", "22222222223", "b@example.com"),
	}}
	auditor := NewAuditor(lister, testLogger())

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)

	// One broken customer out of two is over the 10% budget.
	assert.False(t, report.IsHealthy)
	assert.Equal(t, 1, report.CustomersWithIssues)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "customer deadbeef: customer without sources", report.Issues[0])
	assert.Contains(t, report.Recommendations, "review customers with consistency issues")
}
