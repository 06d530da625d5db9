package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImport(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{"source":"crm","force_merge":true,"data":{"name":"Maria Silva","email":"maria@example.com"}}`),
	}

	require.NoError(t, msg.parseImport())
	require.NotNil(t, msg.Import)
	assert.Equal(t, "crm", msg.Import.Source)
	assert.True(t, msg.Import.ForceMerge)
	assert.Equal(t, "Maria Silva", msg.Import.Data.Name)
	assert.Equal(t, "maria@example.com", msg.Import.Data.Email)
}

func TestParseImportFallsBackToSourceHeader(t *testing.T) {
	msg := &IncomingMessage{
		Value:   []byte(`{"data":{"name":"Maria Silva"}}`),
		Headers: map[string]string{"source": "billing"},
	}

	require.NoError(t, msg.parseImport())
	assert.Equal(t, "billing", msg.Import.Source)
}

func TestParseImportRejectsInvalidJSON(t *testing.T) {
	msg := &IncomingMessage{Value: []byte(`not json`)}

	assert.Error(t, msg.parseImport())
	assert.Nil(t, msg.Import)
}
