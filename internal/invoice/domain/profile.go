package domain

import "strings"

// Address is a postal address as stored by the profile and order services.
type Address struct {
	Name      string `json:"name,omitempty"`
	Line1     string `json:"line1,omitempty"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	StateCode string `json:"state_code,omitempty"`
	Pincode   string `json:"pincode,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Parts returns the non-empty address parts in print order.
func (a Address) Parts() []string {
	raw := []string{a.Line1, a.Line2, a.City, a.State, a.Pincode}
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// Join composes the address on one line, never leaving empty fields or
// dangling separators behind.
func (a Address) Join() string {
	return strings.Join(a.Parts(), ", ")
}

// StateKey is the state identifier used for jurisdiction decisions:
// the explicit code when present, otherwise the state name.
func (a Address) StateKey() string {
	if code := strings.TrimSpace(a.StateCode); code != "" {
		return code
	}
	return strings.TrimSpace(a.State)
}

// Equal compares two addresses field by field, ignoring case and padding.
func (a Address) Equal(b Address) bool {
	return strings.EqualFold(a.Join(), b.Join()) &&
		strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(b.Name))
}

// TaxProfile is a party's fiscal identity. Callers pass a snapshot; the
// invoice copies what it prints so later profile edits never leak into an
// issued document.
type TaxProfile struct {
	Registered    bool    `json:"registered"`
	GSTIN         string  `json:"gstin,omitempty" validate:"omitempty,len=15,alphanum"`
	LegalName     string  `json:"legal_name,omitempty" validate:"omitempty,max=200"`
	TradeName     string  `json:"trade_name,omitempty" validate:"omitempty,max=200"`
	Address       Address `json:"address"`
	Email         string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string  `json:"phone,omitempty"`
	InvoicePrefix string  `json:"invoice_prefix,omitempty" validate:"omitempty,max=8,alphanum"`
}

// DisplayName prefers the trade name, then the legal name.
func (p TaxProfile) DisplayName() string {
	if name := strings.TrimSpace(p.TradeName); name != "" {
		return name
	}
	return strings.TrimSpace(p.LegalName)
}
