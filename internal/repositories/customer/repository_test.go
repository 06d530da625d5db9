package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullKeyBlankValuesBecomeNull(t *testing.T) {
	assert.Nil(t, nullKey(""))
	assert.Equal(t, "12345678901", nullKey("12345678901"))
	assert.Equal(t, "maria@example.com", nullKey("maria@example.com"))
}
