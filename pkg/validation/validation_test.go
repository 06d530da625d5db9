package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreplane/unify/pkg/models"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"maria@example.com", true},
		{"maria.silva+tag@sub.example.com.br", true},
		{" maria@example.com ", true},
		{"maria@example", false},
		{"@example.com", false},
		{"maria", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidEmail(tt.email))
		})
	}
}

func TestValidDocument(t *testing.T) {
	tests := []struct {
		name     string
		document string
		valid    bool
	}{
		{"cpf with punctuation", "123.456.789-01", true},
		{"bare cpf", "12345678901", true},
		{"cnpj", "12.345.678/0001-95", true},
		{"too short", "123456789", false},
		{"twelve digits", "123456789012", false},
		{"all same digit", "11111111111", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidDocument(tt.document))
		})
	}
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("(11) 98765-4321"))
	assert.True(t, ValidPhone("1133334444"))
	assert.False(t, ValidPhone("12345"))
	assert.False(t, ValidPhone("123456789012"))
}

func TestValidPostalCode(t *testing.T) {
	assert.True(t, ValidPostalCode("01310-100"))
	assert.True(t, ValidPostalCode("01310100"))
	assert.False(t, ValidPostalCode("0131010"))
}

func TestValidBirthDate(t *testing.T) {
	tests := []struct {
		date  string
		valid bool
	}{
		{"1990-05-15", true},
		{"2000-02-29", true},
		{"1990-13-01", false},
		{"1990-02-30", false},
		{"15/05/1990", false},
		{"1990-5-15", false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidBirthDate(tt.date))
		})
	}
}

func TestValidateCustomerData(t *testing.T) {
	tests := []struct {
		name     string
		data     models.CustomerData
		expected []string
	}{
		{
			name: "valid record",
			data: models.CustomerData{
				Name:      "Maria Silva",
				Email:     "maria@example.com",
				Document:  "123.456.789-01",
				BirthDate: "1990-05-15",
			},
			expected: nil,
		},
		{
			name:     "empty record",
			data:     models.CustomerData{},
			expected: []string{"at least one field must be filled"},
		},
		{
			name: "multiple violations",
			data: models.CustomerData{
				Email:    "not-an-email",
				Document: "123",
				Phone:    "12",
			},
			expected: []string{
				"invalid email format",
				"document must have 11 or 14 digits",
				"phone must have 10 or 11 digits",
			},
		},
		{
			name:     "blank fields are not checked",
			data:     models.CustomerData{Name: "Maria Silva"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateCustomerData(&tt.data))
		})
	}
}
