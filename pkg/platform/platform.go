// Package platform orchestrates customer ingestion: validation, match
// scoring, merging, persistence, and downstream projections.
package platform

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/coreplane/unify/pkg/database"
	"github.com/coreplane/unify/pkg/events"
	"github.com/coreplane/unify/pkg/fingerprint"
	"github.com/coreplane/unify/pkg/matching"
	"github.com/coreplane/unify/pkg/merging"
	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/tracing"
	"github.com/coreplane/unify/pkg/validation"
)

// CustomerStore persists unified customer golden records.
type CustomerStore interface {
	Create(ctx context.Context, customer *models.UnifiedCustomer) error
	Get(ctx context.Context, id string) (*models.UnifiedCustomer, error)
	Update(ctx context.Context, customer *models.UnifiedCustomer) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, criteria models.SearchCriteria) ([]models.UnifiedCustomer, error)
	List(ctx context.Context, page, pageSize int) (*models.CustomerListResponse, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// HistoryStore persists the append-only field change log.
type HistoryStore interface {
	AppendBatch(ctx context.Context, customerID string, entries []models.HistoryEntry) error
	ListByCustomer(ctx context.Context, customerID string) ([]models.HistoryEntry, error)
}

// GraphProjection mirrors customers into the graph database.
type GraphProjection interface {
	Upsert(ctx context.Context, customer *models.UnifiedCustomer) error
	Delete(ctx context.Context, customerID string) error
}

// Platform is the entry point for all customer operations.
type Platform struct {
	logger     ectologger.Logger
	db         database.DB
	customers  CustomerStore
	history    HistoryStore
	matcher    *matching.Engine
	merger     *merging.Engine
	emitter    *events.Emitter
	projection GraphProjection
}

// NewPlatform creates a new platform. The projection may be nil when no graph
// database is configured.
func NewPlatform(
	logger ectologger.Logger,
	db database.DB,
	customers CustomerStore,
	history HistoryStore,
	matcher *matching.Engine,
	merger *merging.Engine,
	emitter *events.Emitter,
	projection GraphProjection,
) *Platform {
	return &Platform{
		logger:     logger,
		db:         db,
		customers:  customers,
		history:    history,
		matcher:    matcher,
		merger:     merger,
		emitter:    emitter,
		projection: projection,
	}
}

// AddCustomerData ingests one customer record from a source system. The
// record is matched against the stored base and either creates a new
// customer, merges into the best match, or reports a conflict.
func (p *Platform) AddCustomerData(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.AddCustomerData")
	defer span.End()

	if req.Data.IsEmpty() {
		return &models.IngestResult{
			Status:  models.IngestStatusError,
			Message: "customer data is empty",
		}, nil
	}

	if errs := validation.ValidateCustomerData(&req.Data); len(errs) > 0 {
		return &models.IngestResult{
			Status:  models.IngestStatusError,
			Message: "invalid customer data: " + strings.Join(errs, "; "),
		}, nil
	}

	matches, err := p.matcher.FindMatches(ctx, &req.Data)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return p.createCustomer(ctx, req)
	}

	best := matches[0]
	if len(best.Conflicts) > 0 && !req.ForceMerge {
		if err := p.emitter.EmitConflictDetected(ctx, best.CandidateID, &req.Data, req.Source, best.Score, best.Conflicts); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Conflict event emission failed")
		}
		return &models.IngestResult{
			Status:     models.IngestStatusConflictDetected,
			CustomerID: best.CandidateID,
			MatchScore: &best.Score,
			Conflicts:  best.Conflicts,
			Message:    best.Reason,
		}, nil
	}

	return p.updateCustomer(ctx, req, best)
}

func (p *Platform) createCustomer(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.createCustomer")
	defer span.End()

	now := time.Now().UTC()
	customer := &models.UnifiedCustomer{
		ID:              uuid.New().String(),
		Data:            req.Data,
		CreatedAt:       now,
		UpdatedAt:       now,
		Sources:         models.SourceList{req.Source},
		ConfidenceScore: 1.0,
		Fingerprint:     fingerprint.ForCustomer(&req.Data),
	}

	if err := p.customers.Create(ctx, customer); err != nil {
		return nil, err
	}

	p.project(ctx, customer)
	if err := p.emitter.EmitCustomerCreated(ctx, customer, req.Source); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Created event emission failed")
	}

	return &models.IngestResult{
		Status:     models.IngestStatusCreated,
		CustomerID: customer.ID,
		Message:    "new customer created",
	}, nil
}

func (p *Platform) updateCustomer(ctx context.Context, req *models.IngestRequest, match models.MatchResult) (*models.IngestResult, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.updateCustomer")
	defer span.End()

	ctxTx, tx, err := database.GetTx(ctx, p.logger, p.db, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	existing, err := p.customers.Get(ctxTx, match.CandidateID)
	if err != nil {
		return nil, err
	}

	merged, entries := p.merger.Merge(&existing.Data, &req.Data, req.Source)

	// A merge that changes no field, adds no source, and leaves the
	// fingerprint intact is a no-op: skip the write and the events.
	// updated_at is left alone too; it marks the last data change, not the
	// last ingest attempt.
	newFingerprint := fingerprint.ForCustomer(&merged)
	if len(entries) == 0 && existing.Sources.Contains(req.Source) && !fingerprint.HasChanged(existing.Fingerprint, newFingerprint) {
		return &models.IngestResult{
			Status:     models.IngestStatusUpdated,
			CustomerID: existing.ID,
			MatchScore: &match.Score,
			Message:    "record already up to date",
			Changes:    0,
		}, nil
	}

	existing.Data = merged
	existing.Fingerprint = newFingerprint
	existing.UpdatedAt = time.Now().UTC()
	existing.Sources = existing.Sources.Add(req.Source)
	if match.Score > existing.ConfidenceScore {
		existing.ConfidenceScore = match.Score
	}

	if err := p.customers.Update(ctxTx, existing); err != nil {
		return nil, err
	}
	if err := p.history.AppendBatch(ctxTx, existing.ID, entries); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	p.project(ctx, existing)
	changedFields := make([]string, 0, len(entries))
	for _, entry := range entries {
		changedFields = append(changedFields, entry.Field)
	}
	if err := p.emitter.EmitCustomerUpdated(ctx, existing, req.Source, match.Score, changedFields, req.ForceMerge); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Updated event emission failed")
	}

	return &models.IngestResult{
		Status:     models.IngestStatusUpdated,
		CustomerID: existing.ID,
		MatchScore: &match.Score,
		Message:    "merged into existing customer",
		Changes:    len(entries),
	}, nil
}

// project mirrors a customer into the graph. Projection failures are logged
// and never fail the ingest; the relational store is the system of record.
func (p *Platform) project(ctx context.Context, customer *models.UnifiedCustomer) {
	if p.projection == nil {
		return
	}
	if err := p.projection.Upsert(ctx, customer); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"customer_id": customer.ID}).Warn("Graph projection failed")
	}
}

// GetCustomer returns one customer with its field history.
func (p *Platform) GetCustomer(ctx context.Context, id string) (*models.UnifiedCustomer, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.GetCustomer")
	defer span.End()

	customer, err := p.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := p.history.ListByCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.History = history

	return customer, nil
}

// GetHistory returns a customer's field history, oldest first.
func (p *Platform) GetHistory(ctx context.Context, id string) ([]models.HistoryEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.GetHistory")
	defer span.End()

	// Ensure the customer exists so a missing id is a 404, not an empty list.
	if _, err := p.customers.Get(ctx, id); err != nil {
		return nil, err
	}

	return p.history.ListByCustomer(ctx, id)
}

// SearchCustomers returns customers matching the given criteria.
func (p *Platform) SearchCustomers(ctx context.Context, criteria models.SearchCriteria) ([]models.UnifiedCustomer, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.SearchCustomers")
	defer span.End()

	return p.customers.Search(ctx, criteria)
}

// ListCustomers returns a page of customers, newest first.
func (p *Platform) ListCustomers(ctx context.Context, page, pageSize int) (*models.CustomerListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.ListCustomers")
	defer span.End()

	return p.customers.List(ctx, page, pageSize)
}

// DeleteCustomer removes a customer, its history, and its graph node.
func (p *Platform) DeleteCustomer(ctx context.Context, id string, source string) error {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.DeleteCustomer")
	defer span.End()

	if err := p.customers.Delete(ctx, id); err != nil {
		return err
	}

	if p.projection != nil {
		if err := p.projection.Delete(ctx, id); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"customer_id": id}).Warn("Graph deletion failed")
		}
	}
	if err := p.emitter.EmitCustomerDeleted(ctx, id, source); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Deleted event emission failed")
	}

	return nil
}

// Statistics returns the system-wide counters.
func (p *Platform) Statistics(ctx context.Context) (*models.Statistics, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.Statistics")
	defer span.End()

	return p.customers.Statistics(ctx)
}

// PreviewMatches scores a record against the stored base without persisting
// anything.
func (p *Platform) PreviewMatches(ctx context.Context, data *models.CustomerData) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.PreviewMatches")
	defer span.End()

	return p.matcher.FindMatches(ctx, data)
}

// ScoreAgainst compares a record with one stored customer and returns the
// score and any conflicts.
func (p *Platform) ScoreAgainst(ctx context.Context, data *models.CustomerData, candidateID string) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.ScoreAgainst")
	defer span.End()

	candidate, err := p.customers.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	score, conflicts := p.matcher.CalculateMatchScore(data, &candidate.Data)
	result := &models.MatchResult{
		CandidateID: candidateID,
		Score:       score,
		Conflicts:   conflicts,
		IsSafeMatch: len(conflicts) == 0,
	}
	return result, nil
}

// MatchThreshold returns the current minimum match score.
func (p *Platform) MatchThreshold() float64 {
	return p.matcher.Threshold()
}

// UpdateMatchThreshold changes the minimum match score at runtime.
func (p *Platform) UpdateMatchThreshold(threshold float64) error {
	return p.matcher.SetThreshold(threshold)
}

// ExportBundle is a full dump of the customer base.
type ExportBundle struct {
	ExportedAt time.Time                `json:"exported_at"`
	Statistics *models.Statistics       `json:"statistics"`
	Customers  []models.UnifiedCustomer `json:"customers"`
}

// Export returns every customer with its history plus the system counters.
func (p *Platform) Export(ctx context.Context) (*ExportBundle, error) {
	ctx, span := tracing.StartSpan(ctx, "platform.Platform.Export")
	defer span.End()

	stats, err := p.customers.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	var customers []models.UnifiedCustomer
	for page := 1; ; page++ {
		batch, err := p.customers.List(ctx, page, 100)
		if err != nil {
			return nil, err
		}
		if len(batch.Items) == 0 {
			break
		}
		for i := range batch.Items {
			item := batch.Items[i]
			history, err := p.history.ListByCustomer(ctx, item.ID)
			if err != nil {
				return nil, err
			}
			item.History = history
			customers = append(customers, item)
		}
		if len(batch.Items) < 100 {
			break
		}
	}

	return &ExportBundle{
		ExportedAt: time.Now().UTC(),
		Statistics: stats,
		Customers:  customers,
	}, nil
}
