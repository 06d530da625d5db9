package models

// ImportRecord is one row of a bulk import.
type ImportRecord struct {
	Data   CustomerData `json:"data" validate:"required"`
	Source string       `json:"source,omitempty"`
}

// ImportRequest is a batch of records to run through the ingestion flow.
type ImportRequest struct {
	Source     string         `json:"source" validate:"required"`
	ForceMerge bool           `json:"force_merge"`
	Records    []ImportRecord `json:"records" validate:"required,min=1,dive"`
}

// ImportResult aggregates per-record outcomes for a batch.
type ImportResult struct {
	Processed int            `json:"processed"`
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Conflicts int            `json:"conflicts"`
	Errors    int            `json:"errors"`
	Results   []IngestResult `json:"results,omitempty"`
}

// Statistics is the system-wide summary exposed by the stats endpoint.
type Statistics struct {
	TotalCustomers         int     `json:"total_customers" db:"total_customers"`
	CustomersWithUpdates   int     `json:"customers_with_updates" db:"customers_with_updates"`
	AverageConfidenceScore float64 `json:"average_confidence_score" db:"average_confidence_score"`
	TotalHistoryEntries    int     `json:"total_history_entries" db:"total_history_entries"`
}
