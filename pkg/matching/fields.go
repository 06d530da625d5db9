package matching

import (
	"fmt"
	"math"
)

// Field names that carry match weight.
const (
	FieldDocument  = "document"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldName      = "name"
	FieldAddress   = "address"
	FieldBirthDate = "birth_date"
)

// weightedFields is the static table of fields the engine scores, in
// evaluation order. Document goes first so its eliminatory conflict can short
// circuit the rest.
var weightedFields = []string{
	FieldDocument,
	FieldEmail,
	FieldName,
	FieldPhone,
	FieldBirthDate,
	FieldAddress,
}

// Weights maps weighted field names to their share of the match score.
type Weights map[string]float64

// DefaultWeights returns the standard field weights. Document dominates
// because a shared national identifier is near-certain identity.
func DefaultWeights() Weights {
	return Weights{
		FieldDocument:  0.40,
		FieldEmail:     0.25,
		FieldPhone:     0.20,
		FieldName:      0.05,
		FieldAddress:   0.05,
		FieldBirthDate: 0.05,
	}
}

const weightSumTolerance = 1e-9

// Validate checks that every weighted field is covered, no unknown fields are
// present, each weight is within [0, 1], and the weights sum to 1.0.
func (w Weights) Validate() error {
	sum := 0.0
	for _, field := range weightedFields {
		weight, ok := w[field]
		if !ok {
			return fmt.Errorf("missing weight for field %q", field)
		}
		if weight < 0 || weight > 1 {
			return fmt.Errorf("weight for field %q must be within [0, 1], got %v", field, weight)
		}
		sum += weight
	}
	if len(w) != len(weightedFields) {
		for field := range w {
			known := false
			for _, name := range weightedFields {
				if name == field {
					known = true
					break
				}
			}
			if !known {
				return fmt.Errorf("unknown weighted field %q", field)
			}
		}
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("field weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// Config contains thresholds and weights for the match engine.
type Config struct {
	// MatchThreshold is the minimum score for a candidate to count as a match.
	MatchThreshold float64
	// SimilarityThreshold is the minimum name similarity to award name weight.
	SimilarityThreshold float64
	// LowSimilarityThreshold is the name similarity below which two names
	// conflict.
	LowSimilarityThreshold float64
	// AddressSimilarityThreshold is the minimum address similarity to award
	// address weight.
	AddressSimilarityThreshold float64
	// MaxCandidates caps how many scored matches FindMatches returns.
	MaxCandidates int
	Weights       Weights
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:             0.7,
		SimilarityThreshold:        0.8,
		LowSimilarityThreshold:     0.3,
		AddressSimilarityThreshold: 0.7,
		MaxCandidates:              100,
		Weights:                    DefaultWeights(),
	}
}
