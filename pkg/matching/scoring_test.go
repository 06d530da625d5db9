package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{"identical", "maria silva", "maria silva", 1.0},
		{"empty left", "", "maria", 0.0},
		{"empty right", "maria", "", 0.0},
		{"no overlap", "abc", "xyz", 0.0},
		// "abcd" vs "bcde": matching block "bcd", 2*3/8
		{"partial overlap", "abcd", "bcde", 0.75},
		// "kitten" vs "sitting": blocks "itt" and "n", 2*4/13
		{"classic pair", "kitten", "sitting", 8.0 / 13.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatioIsSymmetricOnLength(t *testing.T) {
	scorer := NewScorer()

	// The matched block count is the same in both directions, so the ratio is
	// symmetric.
	a, b := "maria aparecida silva", "maria silva"
	assert.InDelta(t, scorer.Ratio(a, b), scorer.Ratio(b, a), 1e-9)
}

func TestExactMatch(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.ExactMatch("abc", "abc"))
	assert.Equal(t, 0.0, scorer.ExactMatch("abc", "abd"))
	assert.Equal(t, 0.0, scorer.ExactMatch("", ""))
}
