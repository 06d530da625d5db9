// Package customer persists unified customer golden records.
package customer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/coreplane/unify/pkg/database"
	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/normalizers"
	"github.com/coreplane/unify/pkg/tracing"
)

const customerColumns = "id, data, email, document_normalized, phone_normalized, name_normalized, sources, confidence_score, fingerprint, created_at, updated_at"

// Repository handles unified customer persistence. Besides the jsonb payload
// each row carries denormalized, normalized key columns so candidate lookups
// stay indexable.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new unified customer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying database handle for transactional operations.
func (r *Repository) DB() database.DB {
	return r.db
}

// Create inserts a new unified customer.
func (r *Repository) Create(ctx context.Context, customer *models.UnifiedCustomer) error {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	if customer.UpdatedAt.IsZero() {
		customer.UpdatedAt = now
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("unified_customers")
	sb.Cols("id", "data", "email", "document_normalized", "phone_normalized", "name_normalized", "sources", "confidence_score", "fingerprint", "created_at", "updated_at")
	sb.Values(
		customer.ID, customer.Data, nullKey(customer.Data.Email),
		nullKey(normalizers.Document(customer.Data.Document)),
		nullKey(normalizers.Phone(customer.Data.Phone)),
		nullKey(normalizers.Text(customer.Data.Name)),
		customer.Sources, customer.ConfidenceScore, customer.Fingerprint,
		customer.CreatedAt, customer.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": customer.ID}).Error("Failed to create unified customer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create customer")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": customer.ID}).Info("Created unified customer")
	return nil
}

// Get retrieves a unified customer by ID.
func (r *Repository) Get(ctx context.Context, id string) (*models.UnifiedCustomer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(customerColumns)
	sb.From("unified_customers")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var customer customerRow
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &customer, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "customer %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get unified customer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get customer")
	}

	return customer.toModel(), nil
}

// Update persists new data, sources, and confidence for an existing customer
// and refreshes the normalized key columns.
func (r *Repository) Update(ctx context.Context, customer *models.UnifiedCustomer) error {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("unified_customers")
	sb.Set(
		sb.Assign("data", customer.Data),
		sb.Assign("email", nullKey(customer.Data.Email)),
		sb.Assign("document_normalized", nullKey(normalizers.Document(customer.Data.Document))),
		sb.Assign("phone_normalized", nullKey(normalizers.Phone(customer.Data.Phone))),
		sb.Assign("name_normalized", nullKey(normalizers.Text(customer.Data.Name))),
		sb.Assign("sources", customer.Sources),
		sb.Assign("confidence_score", customer.ConfidenceScore),
		sb.Assign("fingerprint", customer.Fingerprint),
		sb.Assign("updated_at", customer.UpdatedAt),
	)
	sb.Where(sb.Equal("id", customer.ID))

	query, args := sb.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": customer.ID}).Error("Failed to update unified customer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update customer")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "customer %s not found", customer.ID)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": customer.ID}).Info("Updated unified customer")
	return nil
}

// Delete removes a customer. History rows go with it via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("unified_customers")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to delete unified customer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete customer")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "customer %s not found", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted unified customer")
	return nil
}

// FindCandidates returns customers sharing at least one key value with the
// query, deduplicated in first-seen order: document, then email, name tokens,
// phone.
func (r *Repository) FindCandidates(ctx context.Context, query models.CandidateQuery) ([]models.UnifiedCustomer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.FindCandidates")
	defer span.End()

	var candidates []customerRow

	if query.Document != "" {
		rows, err := r.selectWhere(ctx, "document_normalized LIKE $1", "%"+query.Document+"%")
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rows...)
	}

	if query.Email != "" {
		rows, err := r.selectWhere(ctx, "email = $1", query.Email)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rows...)
	}

	for _, token := range query.NameTokens {
		rows, err := r.selectWhere(ctx, "name_normalized ILIKE $1", "%"+token+"%")
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rows...)
	}

	if query.Phone != "" {
		rows, err := r.selectWhere(ctx, "phone_normalized LIKE $1", "%"+query.Phone+"%")
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rows...)
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := make([]models.UnifiedCustomer, 0, len(candidates))
	for i := range candidates {
		if _, ok := seen[candidates[i].ID]; ok {
			continue
		}
		seen[candidates[i].ID] = struct{}{}
		unique = append(unique, *candidates[i].toModel())
	}

	return unique, nil
}

func (r *Repository) selectWhere(ctx context.Context, where string, args ...any) ([]customerRow, error) {
	query := fmt.Sprintf("SELECT %s FROM unified_customers WHERE %s", customerColumns, where)

	var rows []customerRow
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"where": where}).Error("Failed to find candidate customers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find candidate customers")
	}
	return rows, nil
}

// Search returns customers whose fields contain the given criteria values,
// case insensitively.
func (r *Repository) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.UnifiedCustomer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Search")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(customerColumns)
	sb.From("unified_customers")

	var where []string
	addLike := func(field, value string) {
		if value != "" {
			where = append(where, sb.ILike(fmt.Sprintf("(data ->> '%s')", field), "%"+value+"%"))
		}
	}
	addLike("name", criteria.Name)
	addLike("email", criteria.Email)
	addLike("document", criteria.Document)
	addLike("phone", criteria.Phone)
	addLike("city", criteria.City)
	addLike("state", criteria.State)
	addLike("profession", criteria.Profession)

	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("created_at")

	query, args := sb.Build()
	var rows []customerRow
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search unified customers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search customers")
	}

	return toModels(rows), nil
}

// List retrieves customers with pagination, newest first.
func (r *Repository) List(ctx context.Context, page, pageSize int) (*models.CustomerListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var totalCount int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM unified_customers"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count unified customers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count customers")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(customerColumns)
	sb.From("unified_customers")
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []customerRow
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"page": page, "page_size": pageSize}).Error("Failed to list unified customers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customers")
	}

	return &models.CustomerListResponse{
		Items:      toModels(rows),
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Statistics aggregates the system-wide counters.
func (r *Repository) Statistics(ctx context.Context) (*models.Statistics, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Statistics")
	defer span.End()

	query := `
		SELECT
			(SELECT COUNT(*) FROM unified_customers) AS total_customers,
			(SELECT COUNT(DISTINCT customer_id) FROM customer_history) AS customers_with_updates,
			(SELECT COALESCE(ROUND(AVG(confidence_score)::numeric, 2), 0) FROM unified_customers) AS average_confidence_score,
			(SELECT COUNT(*) FROM customer_history) AS total_history_entries
	`

	var stats models.Statistics
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &stats, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate customer statistics")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get statistics")
	}

	return &stats, nil
}

// nullKey stores absent lookup keys as NULL instead of the empty string so
// the partial indexes skip those rows.
func nullKey(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// customerRow is the db-tagged row shape for unified_customers.
type customerRow struct {
	ID                 string              `db:"id"`
	Data               models.CustomerData `db:"data"`
	Email              *string             `db:"email"`
	DocumentNormalized *string             `db:"document_normalized"`
	PhoneNormalized    *string             `db:"phone_normalized"`
	NameNormalized     *string             `db:"name_normalized"`
	Sources            models.SourceList   `db:"sources"`
	ConfidenceScore    float64             `db:"confidence_score"`
	Fingerprint        string              `db:"fingerprint"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
}

func (row *customerRow) toModel() *models.UnifiedCustomer {
	return &models.UnifiedCustomer{
		ID:              row.ID,
		Data:            row.Data,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		Sources:         row.Sources,
		ConfidenceScore: row.ConfidenceScore,
		Fingerprint:     row.Fingerprint,
	}
}

func toModels(rows []customerRow) []models.UnifiedCustomer {
	customers := make([]models.UnifiedCustomer, 0, len(rows))
	for i := range rows {
		customers = append(customers, *rows[i].toModel())
	}
	return customers
}
