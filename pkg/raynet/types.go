package raynet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the Raynet address shape used on company records.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Company is a Raynet company record as returned by GET /company.
type Company struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	RegNumber      string   `json:"regNumber"`
	PrimaryAddress *Address `json:"primaryAddress"`
	Address        *Address `json:"address"`
}

// FormatAddress joins street, city, zip code and country of the primary
// address (falling back to the plain address), dropping empty parts.
func (c *Company) FormatAddress() string {
	addr := c.PrimaryAddress
	if addr == nil {
		addr = c.Address
	}
	if addr == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Street, addr.City, addr.ZipCode, addr.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ContactInfo carries the phone/email block of a person record.
type ContactInfo struct {
	Tel1  string `json:"tel1"`
	Email string `json:"email"`
}

// Person is a Raynet person record as returned by GET /person.
type Person struct {
	ID          int64       `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	ContactInfo ContactInfo `json:"contactInfo"`
}

// OpportunityParams describes a sales opportunity to create.
type OpportunityParams struct {
	Name           string
	CompanyID      int64
	PersonID       *int64
	EstimatedValue *float64
	ValidFrom      string
	ValidTill      string
}

// ActivityParams describes an activity (outbound email log) to create.
type ActivityParams struct {
	Subject       string
	CompanyID     int64
	PersonID      *int64
	OpportunityID *int64
	Note          string
}

// listEnvelope is the common {"data": [...]} wrapper on Raynet list responses.
type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

// ExtractOpportunityID pulls the opportunity identifier out of a create
// response. Raynet has returned the id either nested under "data" or at the
// top level depending on API version, so both shapes are tried in order and
// anything else fails explicitly.
func ExtractOpportunityID(raw json.RawMessage) (int64, error) {
	var nested struct {
		Data struct {
			ID *int64 `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Data.ID != nil {
		return *nested.Data.ID, nil
	}

	var flat struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.ID != nil {
		return *flat.ID, nil
	}

	return 0, fmt.Errorf("could not extract opportunity id from response: %s", string(raw))
}
