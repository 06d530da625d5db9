// Package history persists the append-only field change log for unified
// customers.
package history

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/coreplane/unify/pkg/database"
	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/tracing"
)

// Repository handles customer history persistence.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new customer history repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AppendBatch inserts history entries for one customer. Entries are never
// updated or deleted afterwards.
func (r *Repository) AppendBatch(ctx context.Context, customerID string, entries []models.HistoryEntry) error {
	ctx, span := tracing.StartSpan(ctx, "history.Repository.AppendBatch")
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("customer_history")
	sb.Cols("id", "customer_id", "timestamp", "field", "old_value", "new_value", "source", "confidence")
	for _, entry := range entries {
		id := entry.ID
		if id == "" {
			id = uuid.New().String()
		}
		sb.Values(id, customerID, entry.Timestamp, entry.Field, entry.OldValue, entry.NewValue, entry.Source, entry.Confidence)
	}

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"customer_id": customerID, "entries": len(entries)}).Error("Failed to append customer history")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to append customer history")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"customer_id": customerID, "entries": len(entries)}).Debug("Appended customer history")
	return nil
}

// ListByCustomer returns a customer's history, oldest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]models.HistoryEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "history.Repository.ListByCustomer")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "customer_id", "timestamp", "field", "old_value", "new_value", "source", "confidence")
	sb.From("customer_history")
	sb.Where(sb.Equal("customer_id", customerID))
	// Entries from one merge share a timestamp, so order by the insertion
	// sequence instead.
	sb.OrderBy("seq")

	query, args := sb.Build()
	var entries []models.HistoryEntry
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"customer_id": customerID}).Error("Failed to list customer history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customer history")
	}
	return entries, nil
}

// CountAll returns the total number of history entries.
func (r *Repository) CountAll(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "history.Repository.CountAll")
	defer span.End()

	var count int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &count, "SELECT COUNT(*) FROM customer_history"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count customer history")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count customer history")
	}
	return count, nil
}
