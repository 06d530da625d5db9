package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CustomerData is a single observation of a customer from some source system.
// Every field is optional; an empty or whitespace-only value counts as absent.
type CustomerData struct {
	Name       string `json:"name,omitempty" db:"-"`
	Email      string `json:"email,omitempty" db:"-"`
	Document   string `json:"document,omitempty" db:"-"`
	Phone      string `json:"phone,omitempty" db:"-"`
	Address    string `json:"address,omitempty" db:"-"`
	City       string `json:"city,omitempty" db:"-"`
	State      string `json:"state,omitempty" db:"-"`
	PostalCode string `json:"postal_code,omitempty" db:"-"`
	BirthDate  string `json:"birth_date,omitempty" db:"-"`
	Profession string `json:"profession,omitempty" db:"-"`
}

// FieldAccessor reads and writes one CustomerData field by name without
// reflection.
type FieldAccessor struct {
	Name string
	Get  func(*CustomerData) string
	Set  func(*CustomerData, string)
}

// CustomerFields is the canonical field table. Order matches the wire format.
var CustomerFields = []FieldAccessor{
	{"name", func(d *CustomerData) string { return d.Name }, func(d *CustomerData, v string) { d.Name = v }},
	{"email", func(d *CustomerData) string { return d.Email }, func(d *CustomerData, v string) { d.Email = v }},
	{"document", func(d *CustomerData) string { return d.Document }, func(d *CustomerData, v string) { d.Document = v }},
	{"phone", func(d *CustomerData) string { return d.Phone }, func(d *CustomerData, v string) { d.Phone = v }},
	{"address", func(d *CustomerData) string { return d.Address }, func(d *CustomerData, v string) { d.Address = v }},
	{"city", func(d *CustomerData) string { return d.City }, func(d *CustomerData, v string) { d.City = v }},
	{"state", func(d *CustomerData) string { return d.State }, func(d *CustomerData, v string) { d.State = v }},
	{"postal_code", func(d *CustomerData) string { return d.PostalCode }, func(d *CustomerData, v string) { d.PostalCode = v }},
	{"birth_date", func(d *CustomerData) string { return d.BirthDate }, func(d *CustomerData, v string) { d.BirthDate = v }},
	{"profession", func(d *CustomerData) string { return d.Profession }, func(d *CustomerData, v string) { d.Profession = v }},
}

// Field returns the accessor for a field name, or nil when the name is unknown.
func Field(name string) *FieldAccessor {
	for i := range CustomerFields {
		if CustomerFields[i].Name == name {
			return &CustomerFields[i]
		}
	}
	return nil
}

// IsEmpty reports whether every field is absent.
func (d *CustomerData) IsEmpty() bool {
	for _, f := range CustomerFields {
		if strings.TrimSpace(f.Get(d)) != "" {
			return false
		}
	}
	return true
}

// HasField reports whether the named field carries a non-blank value.
func (d *CustomerData) HasField(name string) bool {
	f := Field(name)
	if f == nil {
		return false
	}
	return strings.TrimSpace(f.Get(d)) != ""
}

func (d CustomerData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *CustomerData) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("CustomerData.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, d)
}

// SourceList is the ordered set of source systems that contributed to a
// unified customer. Stored as jsonb.
type SourceList []string

// Add appends a source if it is not already present.
func (s SourceList) Add(source string) SourceList {
	if s.Contains(source) {
		return s
	}
	return append(s, source)
}

// Contains reports whether the source is already in the list.
func (s SourceList) Contains(source string) bool {
	for _, existing := range s {
		if existing == source {
			return true
		}
	}
	return false
}

func (s SourceList) Value() (driver.Value, error) {
	if s == nil {
		s = SourceList{}
	}
	return json.Marshal(s)
}

func (s *SourceList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("SourceList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, s)
}

// HistoryEntry records one field-level change applied during a merge.
type HistoryEntry struct {
	ID         string    `json:"id" db:"id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	Field      string    `json:"field" db:"field"`
	OldValue   *string   `json:"old_value" db:"old_value"`
	NewValue   *string   `json:"new_value" db:"new_value"`
	Source     string    `json:"source" db:"source"`
	Confidence float64   `json:"confidence" db:"confidence"`
}

// UnifiedCustomer is the golden record for one resolved customer identity.
type UnifiedCustomer struct {
	ID              string         `json:"id" db:"id"`
	Data            CustomerData   `json:"data" db:"data"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
	History         []HistoryEntry `json:"history" db:"-"`
	Sources         SourceList     `json:"sources" db:"sources"`
	ConfidenceScore float64        `json:"confidence_score" db:"confidence_score"`
	Fingerprint     string         `json:"-" db:"fingerprint"`
}

// SearchCriteria is a contains-style filter. Blank fields are ignored.
type SearchCriteria struct {
	Name       string `json:"name,omitempty" query:"name"`
	Email      string `json:"email,omitempty" query:"email"`
	Document   string `json:"document,omitempty" query:"document"`
	Phone      string `json:"phone,omitempty" query:"phone"`
	City       string `json:"city,omitempty" query:"city"`
	State      string `json:"state,omitempty" query:"state"`
	Profession string `json:"profession,omitempty" query:"profession"`
}

// IsZero reports whether no criteria were provided.
func (c *SearchCriteria) IsZero() bool {
	return c.Name == "" && c.Email == "" && c.Document == "" && c.Phone == "" &&
		c.City == "" && c.State == "" && c.Profession == ""
}

// CustomerListResponse is the response for listing customers.
type CustomerListResponse struct {
	Items      []UnifiedCustomer `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}
