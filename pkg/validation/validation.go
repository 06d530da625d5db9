// Package validation enforces the domain rules for incoming customer
// records. Request-shape validation stays with the echo handlers; these
// checks are about field content.
package validation

import (
	"regexp"
	"time"

	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/normalizers"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
var birthDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateCustomerData checks every populated field against its rule and
// returns one message per violation. An empty slice means the record is
// acceptable.
func ValidateCustomerData(data *models.CustomerData) []string {
	var errs []string

	if data.Email != "" && !ValidEmail(data.Email) {
		errs = append(errs, "invalid email format")
	}
	if data.Document != "" && !ValidDocument(data.Document) {
		errs = append(errs, "document must have 11 or 14 digits")
	}
	if data.Phone != "" && !ValidPhone(data.Phone) {
		errs = append(errs, "phone must have 10 or 11 digits")
	}
	if data.PostalCode != "" && !ValidPostalCode(data.PostalCode) {
		errs = append(errs, "postal code must have 8 digits")
	}
	if data.BirthDate != "" && !ValidBirthDate(data.BirthDate) {
		errs = append(errs, "birth date must be in YYYY-MM-DD format")
	}
	if data.IsEmpty() {
		errs = append(errs, "at least one field must be filled")
	}

	return errs
}

// ValidEmail reports whether the value looks like an email address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(normalizers.Trim(email))
}

// ValidDocument accepts 11-digit (person) or 14-digit (company) identifiers.
// A value with every digit the same is rejected as a placeholder.
func ValidDocument(document string) bool {
	digits := normalizers.DigitsOnly(document)
	if len(digits) != 11 && len(digits) != 14 {
		return false
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return true
		}
	}
	return false
}

// ValidPhone accepts 10-digit landline or 11-digit mobile numbers.
func ValidPhone(phone string) bool {
	n := len(normalizers.DigitsOnly(phone))
	return n == 10 || n == 11
}

// ValidPostalCode accepts exactly 8 digits.
func ValidPostalCode(postalCode string) bool {
	return len(normalizers.DigitsOnly(postalCode)) == 8
}

// ValidBirthDate accepts calendar dates in YYYY-MM-DD form.
func ValidBirthDate(date string) bool {
	if !birthDatePattern.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
