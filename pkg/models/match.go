package models

// MatchResult scores one existing customer against an incoming record.
// Conflicts is keyed by field name with a human readable description of the
// disagreement.
type MatchResult struct {
	CandidateID string            `json:"candidate_id"`
	Score       float64           `json:"score"`
	Conflicts   map[string]string `json:"conflicts,omitempty"`
	IsSafeMatch bool              `json:"is_safe_match"`
	Reason      string            `json:"reason"`
}

// CandidateQuery carries the normalized key values used to narrow the
// candidate search before scoring.
type CandidateQuery struct {
	Document   string
	Email      string
	NameTokens []string
	Phone      string
}

// IsZero reports whether no lookup keys are available.
func (q *CandidateQuery) IsZero() bool {
	return q.Document == "" && q.Email == "" && len(q.NameTokens) == 0 && q.Phone == ""
}

// IngestStatus is the outcome of ingesting one customer record.
type IngestStatus string

const (
	// IngestStatusCreated means no acceptable match existed and a new
	// customer was created.
	IngestStatusCreated IngestStatus = "created"
	// IngestStatusUpdated means the record merged into an existing customer.
	IngestStatusUpdated IngestStatus = "updated"
	// IngestStatusConflictDetected means the best match scored above the
	// threshold but carried conflicts and the merge was not forced.
	IngestStatusConflictDetected IngestStatus = "conflict_detected"
	// IngestStatusError means the record was rejected before matching.
	IngestStatusError IngestStatus = "error"
)

// IngestResult is returned by the ingestion flow for one record.
type IngestResult struct {
	Status     IngestStatus      `json:"status"`
	CustomerID string            `json:"customer_id,omitempty"`
	MatchScore *float64          `json:"match_score,omitempty"`
	Conflicts  map[string]string `json:"conflicts,omitempty"`
	Message    string            `json:"message,omitempty"`
	Changes    int               `json:"changes_made"`
}

// IngestRequest is the request for ingesting one customer record.
type IngestRequest struct {
	Data       CustomerData `json:"data" validate:"required"`
	Source     string       `json:"source" validate:"required"`
	ForceMerge bool         `json:"force_merge"`
}

// MatchPreviewRequest asks for candidate matches without persisting anything.
type MatchPreviewRequest struct {
	Data CustomerData `json:"data" validate:"required"`
}

// ScoreRequest scores an incoming record against one stored customer.
type ScoreRequest struct {
	Data        CustomerData `json:"data" validate:"required"`
	CandidateID string       `json:"candidate_id" validate:"required,uuid"`
}

// ThresholdRequest updates the minimum score for an acceptable match.
type ThresholdRequest struct {
	Threshold float64 `json:"threshold"`
}
