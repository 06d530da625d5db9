// Package merging combines an incoming customer record into an existing
// golden record while capturing field-level history.
package merging

import (
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/coreplane/unify/pkg/models"
)

// Engine applies the merge policy: an incoming value wins whenever it is
// present, and every overwrite of a different value is recorded as history.
type Engine struct {
	logger ectologger.Logger
	now    func() time.Time
}

// NewEngine creates a new merge engine.
func NewEngine(logger ectologger.Logger) *Engine {
	return &Engine{
		logger: logger,
		now:    time.Now,
	}
}

// Merge folds incoming into existing field by field and returns the merged
// record plus one history entry per changed field. Blank incoming fields keep
// the existing value and produce no history. All entries from one merge share
// a single timestamp.
func (e *Engine) Merge(existing, incoming *models.CustomerData, source string) (models.CustomerData, []models.HistoryEntry) {
	var merged models.CustomerData
	var history []models.HistoryEntry
	now := e.now()

	for _, field := range models.CustomerFields {
		existingValue := field.Get(existing)
		newValue := field.Get(incoming)

		if strings.TrimSpace(newValue) == "" {
			field.Set(&merged, existingValue)
			continue
		}

		field.Set(&merged, newValue)
		if existingValue == newValue {
			continue
		}

		entry := models.HistoryEntry{
			ID:         uuid.New().String(),
			Timestamp:  now,
			Field:      field.Name,
			NewValue:   ptr(newValue),
			Source:     source,
			Confidence: 1.0,
		}
		if existingValue != "" {
			entry.OldValue = ptr(existingValue)
		}
		history = append(history, entry)
	}

	return merged, history
}

func ptr(s string) *string {
	return &s
}
