package models

import "strings"

// Address is an embedded value, stored as JSONB alongside its owner. It has
// no identity of its own.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Number     string `json:"number"`
}

// Validate checks that every address component is present.
func (a Address) Validate() error {
	fields := map[string]string{
		"street":     a.Street,
		"city":       a.City,
		"state":      a.State,
		"postalCode": a.PostalCode,
		"country":    a.Country,
		"number":     a.Number,
	}
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &FieldError{Fields: missing}
	}
	return nil
}

// FieldError reports which required fields were missing or malformed.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}
