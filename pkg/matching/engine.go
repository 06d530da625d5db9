// Package matching implements weighted customer match scoring and candidate
// discovery.
package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/normalizers"
	"github.com/coreplane/unify/pkg/tracing"
)

// CandidateFinder narrows the search space to customers sharing at least one
// key value with the incoming record.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, query models.CandidateQuery) ([]models.UnifiedCustomer, error)
}

// Engine scores incoming customer records against stored customers.
type Engine struct {
	logger     ectologger.Logger
	candidates CandidateFinder
	scorer     *Scorer
	config     Config

	mu             sync.RWMutex
	matchThreshold float64
}

// NewEngine creates a new match engine.
func NewEngine(logger ectologger.Logger, candidates CandidateFinder, config Config) (*Engine, error) {
	if err := config.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid match weights: %w", err)
	}
	return &Engine{
		logger:         logger,
		candidates:     candidates,
		scorer:         NewScorer(),
		config:         config,
		matchThreshold: config.MatchThreshold,
	}, nil
}

// Threshold returns the current minimum match score.
func (e *Engine) Threshold() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matchThreshold
}

// SetThreshold updates the minimum match score. Values outside [0, 1] are
// rejected and the previous threshold stays in effect.
func (e *Engine) SetThreshold(threshold float64) error {
	if threshold < 0.0 || threshold > 1.0 {
		return fmt.Errorf("match threshold must be within [0.0, 1.0], got %v", threshold)
	}
	e.mu.Lock()
	e.matchThreshold = threshold
	e.mu.Unlock()
	return nil
}

// FindMatches returns stored customers that score at or above the match
// threshold against the incoming record, best first.
func (e *Engine) FindMatches(ctx context.Context, data *models.CustomerData) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindMatches")
	defer span.End()

	query := CandidateQueryFor(data)
	if query.IsZero() {
		return nil, nil
	}

	candidates, err := e.candidates.FindCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	threshold := e.Threshold()

	matches := make([]models.MatchResult, 0, len(candidates))
	for i := range candidates {
		candidate := &candidates[i]
		score, conflicts := e.CalculateMatchScore(data, &candidate.Data)
		if score < threshold {
			continue
		}

		result := models.MatchResult{
			CandidateID: candidate.ID,
			Score:       score,
			Conflicts:   conflicts,
			IsSafeMatch: true,
			Reason:      "safe match",
		}
		if len(conflicts) > 0 {
			result.IsSafeMatch = false
			result.Reason = "conflicts detected: " + formatConflicts(conflicts)
		}
		matches = append(matches, result)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > e.config.MaxCandidates {
		matches = matches[:e.config.MaxCandidates]
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"candidate_count": len(candidates),
		"match_count":     len(matches),
	}).Debug("Scored match candidates")

	return matches, nil
}

// CalculateMatchScore compares two records and returns a score in [0, 1]
// along with any field conflicts. A document conflict is eliminatory: the
// score is 0.0 and no other fields are evaluated. More than one conflict
// halves the final score.
func (e *Engine) CalculateMatchScore(a, b *models.CustomerData) (float64, map[string]string) {
	totalScore := 0.0
	totalWeight := 0.0
	conflicts := map[string]string{}

	docScore, docConflict := e.checkDocument(a.Document, b.Document)
	if docConflict != "" {
		return 0.0, map[string]string{FieldDocument: docConflict}
	}
	totalScore += docScore
	if bothPresent(a.Document, b.Document) {
		totalWeight += e.config.Weights[FieldDocument]
	}

	totalScore += e.checkEmail(a.Email, b.Email)
	if bothPresent(a.Email, b.Email) {
		totalWeight += e.config.Weights[FieldEmail]
	}

	nameScore, nameConflict := e.checkName(a.Name, b.Name)
	totalScore += nameScore
	if nameConflict != "" {
		conflicts[FieldName] = nameConflict
	}
	if bothPresent(a.Name, b.Name) {
		totalWeight += e.config.Weights[FieldName]
	}

	phoneScore, phoneConflict := e.checkPhone(a.Phone, b.Phone)
	totalScore += phoneScore
	if phoneConflict != "" {
		conflicts[FieldPhone] = phoneConflict
	}
	if bothPresent(a.Phone, b.Phone) {
		totalWeight += e.config.Weights[FieldPhone]
	}

	birthScore, birthConflict := e.checkBirthDate(a.BirthDate, b.BirthDate)
	totalScore += birthScore
	if birthConflict != "" {
		conflicts[FieldBirthDate] = birthConflict
	}
	if bothPresent(a.BirthDate, b.BirthDate) {
		totalWeight += e.config.Weights[FieldBirthDate]
	}

	totalScore += e.checkAddress(a.Address, b.Address)
	if bothPresent(a.Address, b.Address) {
		totalWeight += e.config.Weights[FieldAddress]
	}

	finalScore := 0.0
	if totalWeight > 0 {
		finalScore = totalScore / totalWeight
	}

	if len(conflicts) > 1 {
		finalScore *= 0.5
	}

	return finalScore, conflicts
}

// checkDocument awards full document weight on a normalized exact match and
// reports a conflict when both sides carry different identifiers.
func (e *Engine) checkDocument(doc1, doc2 string) (float64, string) {
	if doc1 == "" || doc2 == "" {
		return 0.0, ""
	}

	norm1 := normalizers.Document(doc1)
	norm2 := normalizers.Document(doc2)

	if norm1 != "" && norm1 == norm2 {
		return e.config.Weights[FieldDocument], ""
	}
	if norm1 != "" && norm2 != "" && norm1 != norm2 {
		return 0.0, fmt.Sprintf("%s vs %s", norm1, norm2)
	}
	return 0.0, ""
}

func (e *Engine) checkEmail(email1, email2 string) float64 {
	if email1 == "" || email2 == "" {
		return 0.0
	}
	if strings.EqualFold(email1, email2) {
		return e.config.Weights[FieldEmail]
	}
	return 0.0
}

// checkName awards similarity-scaled weight above the similarity threshold
// and reports a conflict below the low similarity threshold. The band in
// between contributes nothing either way.
func (e *Engine) checkName(name1, name2 string) (float64, string) {
	if name1 == "" || name2 == "" {
		return 0.0, ""
	}

	similarity := e.scorer.Ratio(normalizers.Text(name1), normalizers.Text(name2))

	if similarity > e.config.SimilarityThreshold {
		return e.config.Weights[FieldName] * similarity, ""
	}
	if similarity < e.config.LowSimilarityThreshold {
		return 0.0, fmt.Sprintf("%s vs %s", name1, name2)
	}
	return 0.0, ""
}

func (e *Engine) checkPhone(phone1, phone2 string) (float64, string) {
	if phone1 == "" || phone2 == "" {
		return 0.0, ""
	}

	norm1 := normalizers.Phone(phone1)
	norm2 := normalizers.Phone(phone2)

	if norm1 != "" && norm1 == norm2 {
		return e.config.Weights[FieldPhone], ""
	}
	if norm1 != "" && norm2 != "" && norm1 != norm2 {
		return 0.0, fmt.Sprintf("%s vs %s", norm1, norm2)
	}
	return 0.0, ""
}

func (e *Engine) checkBirthDate(date1, date2 string) (float64, string) {
	if date1 == "" || date2 == "" {
		return 0.0, ""
	}
	if date1 == date2 {
		return e.config.Weights[FieldBirthDate], ""
	}
	return 0.0, fmt.Sprintf("%s vs %s", date1, date2)
}

func (e *Engine) checkAddress(addr1, addr2 string) float64 {
	if addr1 == "" || addr2 == "" {
		return 0.0
	}

	similarity := e.scorer.Ratio(normalizers.Text(addr1), normalizers.Text(addr2))

	if similarity > e.config.AddressSimilarityThreshold {
		return e.config.Weights[FieldAddress] * similarity
	}
	return 0.0
}

// CandidateQueryFor builds the normalized lookup keys for a record.
func CandidateQueryFor(data *models.CustomerData) models.CandidateQuery {
	query := models.CandidateQuery{}
	if data.Document != "" {
		query.Document = normalizers.Document(data.Document)
	}
	// Email lookups are deliberately case sensitive even though scoring
	// compares emails case insensitively. Rows stored with different casing
	// are only reachable through the other keys. TODO: normalize stored
	// emails in a migration, then switch this to normalizers.Email.
	query.Email = data.Email
	if data.Name != "" {
		query.NameTokens = normalizers.NameTokens(data.Name)
	}
	if data.Phone != "" {
		query.Phone = normalizers.Phone(data.Phone)
	}
	return query
}

func bothPresent(a, b string) bool {
	return a != "" && b != ""
}

func formatConflicts(conflicts map[string]string) string {
	fields := make([]string, 0, len(conflicts))
	for field := range conflicts {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, conflicts[field]))
	}
	return strings.Join(parts, ", ")
}
