// Package fingerprint derives deterministic content hashes for customer
// records so no-op merges can be detected without field comparison.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/coreplane/unify/pkg/models"
)

// ForCustomer returns the fingerprint of a customer record. Blank fields do
// not contribute, so a record round-tripped through storage keeps its
// fingerprint.
func ForCustomer(data *models.CustomerData) string {
	m := map[string]any{}
	for _, field := range models.CustomerFields {
		if value := field.Get(data); value != "" {
			m[field.Name] = value
		}
	}
	return Generate(m)
}

// Generate creates a SHA256 fingerprint of the canonicalized JSON form of
// data. Maps are serialized with sorted keys so the hash is stable across
// encodings.
func Generate(data map[string]any) string {
	var b strings.Builder
	canonicalize(&b, data)
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// GenerateFromJSON creates a fingerprint from raw JSON.
func GenerateFromJSON(data json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}
	return Generate(m), nil
}

func canonicalize(b *strings.Builder, data any) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			canonicalize(b, v[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			canonicalize(b, item)
		}
		b.WriteByte(']')
	default:
		raw, _ := json.Marshal(v)
		b.Write(raw)
	}
}

// HasChanged compares two fingerprints.
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
