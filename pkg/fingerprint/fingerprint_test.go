package fingerprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/unify/pkg/models"
)

func TestForCustomerIsDeterministic(t *testing.T) {
	a := &models.CustomerData{Name: "Maria Silva", Email: "maria@example.com"}
	b := &models.CustomerData{Name: "Maria Silva", Email: "maria@example.com"}

	assert.Equal(t, ForCustomer(a), ForCustomer(b))
}

func TestForCustomerIgnoresBlankFields(t *testing.T) {
	// A record round-tripped through storage gains no fields, so its
	// fingerprint must not depend on which blanks are present.
	full := &models.CustomerData{Name: "Maria Silva", Phone: ""}
	sparse := &models.CustomerData{Name: "Maria Silva"}

	assert.Equal(t, ForCustomer(full), ForCustomer(sparse))
}

func TestForCustomerChangesWithContent(t *testing.T) {
	a := &models.CustomerData{Name: "Maria Silva"}
	b := &models.CustomerData{Name: "Maria Aparecida Silva"}

	assert.NotEqual(t, ForCustomer(a), ForCustomer(b))
}

func TestGenerateSortsMapKeys(t *testing.T) {
	fp := Generate(map[string]any{"b": "2", "a": "1"})

	viaJSON, err := GenerateFromJSON(json.RawMessage(`{"a":"1","b":"2"}`))
	require.NoError(t, err)
	assert.Equal(t, fp, viaJSON)
}

func TestGenerateFromJSONRejectsInvalidInput(t *testing.T) {
	_, err := GenerateFromJSON(json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestHasChanged(t *testing.T) {
	assert.False(t, HasChanged("abc", "abc"))
	assert.True(t, HasChanged("abc", "def"))
}
