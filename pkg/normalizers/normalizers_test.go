package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases and trims", "  Maria Silva  ", "maria silva"},
		{"collapses internal whitespace", "maria   \t silva", "maria silva"},
		{"empty input", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "12345678901", DigitsOnly("123.456.789-01"))
	assert.Equal(t, "11987654321", DigitsOnly("(11) 98765-4321"))
	assert.Equal(t, "", DigitsOnly("no digits here"))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "maria@example.com", Email("  Maria@Example.COM "))
}

func TestNameTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"drops short tokens", "Maria de Souza", []string{"maria", "souza"}},
		{"drops initials", "J R Silva", []string{"silva"}},
		{"empty name", "", nil},
		{"all short tokens", "a b cd", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NameTokens(tt.input))
		})
	}
}

func TestForField(t *testing.T) {
	tests := []struct {
		field    string
		value    string
		expected string
	}{
		{"document", "123.456.789-01", "12345678901"},
		{"phone", "(11) 98765-4321", "11987654321"},
		{"email", " Maria@Example.COM", "maria@example.com"},
		{"postal_code", "01310-100", "01310100"},
		{"birth_date", " 1990-05-15 ", "1990-05-15"},
		{"name", "  Maria  Silva ", "maria silva"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForField(tt.field, tt.value))
		})
	}
}

func TestApplyUnknownNormalizerReturnsInput(t *testing.T) {
	assert.Equal(t, "As Is", Apply("As Is", "does-not-exist"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "maria", ApplyChain("  Maria  ", "trim", "lowercase"))
}
