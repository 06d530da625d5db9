// Package normalizers provides field normalization for matching and candidate
// lookups. Every normalizer is total: blank input yields blank output.
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("text", Text)
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("document", Document)
	Register("phone", Phone)
	Register("email", Email)
	Register("digits_only", DigitsOnly)
}

// fieldNormalizers maps customer fields to the normalizer applied before
// comparison or lookup. Fields not listed use Text.
var fieldNormalizers = map[string]string{
	"document":    "document",
	"phone":       "phone",
	"email":       "email",
	"postal_code": "digits_only",
	"birth_date":  "trim",
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// ForField normalizes a value with the normalizer registered for the field.
func ForField(field, value string) string {
	name, ok := fieldNormalizers[field]
	if !ok {
		name = "text"
	}
	return Apply(value, name)
}

// Text lowercases, trims, and collapses internal whitespace runs to a single
// space.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Document keeps only the digits of a national identifier (CPF or CNPJ).
func Document(s string) string {
	return DigitsOnly(s)
}

// Phone keeps only the digits of a phone number.
func Phone(s string) string {
	return DigitsOnly(s)
}

// Email normalizes an email address (lowercase, trim)
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NameTokens splits a normalized name into tokens usable for candidate
// lookups. Tokens of two characters or fewer are dropped to keep initials
// and particles from matching everyone.
func NameTokens(s string) []string {
	var tokens []string
	for _, token := range strings.Fields(Text(s)) {
		if len(token) > 2 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
