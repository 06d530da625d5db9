// Package audit runs consistency checks over the stored customer base and
// reports integrity issues without mutating anything.
package audit

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/tracing"
)

// pageSize is the customer batch size used while scanning the base.
const pageSize = 500

// CustomerLister pages through the stored customer base.
type CustomerLister interface {
	List(ctx context.Context, page, pageSize int) (*models.CustomerListResponse, error)
}

// Auditor scans unified customers for integrity issues.
type Auditor struct {
	customers CustomerLister
	logger    ectologger.Logger
}

// NewAuditor creates a new auditor
func NewAuditor(customers CustomerLister, logger ectologger.Logger) *Auditor {
	return &Auditor{
		customers: customers,
		logger:    logger,
	}
}

// Report summarizes an integrity scan.
type Report struct {
	IsHealthy           bool     `json:"is_healthy"`
	TotalCustomers      int      `json:"total_customers"`
	CustomersWithIssues int      `json:"customers_with_issues"`
	DuplicateDocuments  int      `json:"duplicate_documents"`
	DuplicateEmails     int      `json:"duplicate_emails"`
	Issues              []string `json:"issues"`
	Recommendations     []string `json:"recommendations"`
}

// CheckCustomer validates the internal consistency of one customer and
// returns one message per issue found.
func CheckCustomer(customer *models.UnifiedCustomer) []string {
	var issues []string

	if customer.ID == "" {
		issues = append(issues, "customer without id")
	}
	if customer.Data.IsEmpty() {
		issues = append(issues, "customer without data")
	}
	if customer.UpdatedAt.Before(customer.CreatedAt) {
		issues = append(issues, "updated before created")
	}
	if customer.ConfidenceScore < 0.0 || customer.ConfidenceScore > 1.0 {
		issues = append(issues, "confidence score out of range")
	}
	if len(customer.Sources) == 0 {
		issues = append(issues, "customer without sources")
	}

	return issues
}

// Run scans the whole customer base. The base is considered unhealthy when
// more than 10% of customers have issues or any duplicate document or email
// exists.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Auditor.Run")
	defer span.End()

	report := &Report{
		Issues:          []string{},
		Recommendations: []string{},
	}

	seenDocuments := map[string]bool{}
	seenEmails := map[string]bool{}
	duplicateDocuments := map[string]bool{}
	duplicateEmails := map[string]bool{}

	for page := 1; ; page++ {
		customers, err := a.customers.List(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		if len(customers.Items) == 0 {
			break
		}

		for i := range customers.Items {
			customer := &customers.Items[i]
			report.TotalCustomers++

			if issues := CheckCustomer(customer); len(issues) > 0 {
				report.CustomersWithIssues++
				for _, issue := range issues {
					report.Issues = append(report.Issues, fmt.Sprintf("customer %.8s: %s", customer.ID, issue))
				}
			}

			if doc := customer.Data.Document; doc != "" {
				if seenDocuments[doc] {
					duplicateDocuments[doc] = true
				}
				seenDocuments[doc] = true
			}
			if email := customer.Data.Email; email != "" {
				if seenEmails[email] {
					duplicateEmails[email] = true
				}
				seenEmails[email] = true
			}
		}

		if len(customers.Items) < pageSize {
			break
		}
	}

	report.DuplicateDocuments = len(duplicateDocuments)
	report.DuplicateEmails = len(duplicateEmails)

	if report.CustomersWithIssues > 0 {
		report.Recommendations = append(report.Recommendations, "review customers with consistency issues")
	}
	if report.DuplicateDocuments > 0 {
		report.Recommendations = append(report.Recommendations, "investigate duplicate documents")
	}
	if report.DuplicateEmails > 0 {
		report.Recommendations = append(report.Recommendations, "investigate duplicate emails")
	}

	report.IsHealthy = report.CustomersWithIssues*10 <= report.TotalCustomers &&
		report.DuplicateDocuments == 0 &&
		report.DuplicateEmails == 0

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"total_customers":       report.TotalCustomers,
		"customers_with_issues": report.CustomersWithIssues,
		"is_healthy":            report.IsHealthy,
	}).Info("Completed integrity audit")

	return report, nil
}
