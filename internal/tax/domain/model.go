package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Regime is the GST treatment applied to a supply.
// These values are persisted on issued invoices; do not rename.
type Regime string

const (
	// RegimeCGSTSGST splits the tax into equal central and state halves (intra-state).
	RegimeCGSTSGST Regime = "CGST_SGST"
	// RegimeIGST applies a single integrated tax (inter-state or unknown recipient).
	RegimeIGST Regime = "IGST"
	// RegimeNone means no tax is charged (unregistered seller).
	RegimeNone Regime = "NONE"
)

// DefaultGSTRate is used when the catalog carries no rate for an item.
var DefaultGSTRate = decimal.NewFromInt(18)

// Jurisdiction is the outcome of comparing supplier and recipient states.
// State fields hold normalised two-digit codes, or "" when unknown.
type Jurisdiction struct {
	Regime         Regime `json:"regime"`
	SupplierState  string `json:"supplier_state,omitempty"`
	RecipientState string `json:"recipient_state,omitempty"`
}

// Split is the tax computed for one taxable amount.
// All three fields are always set; the ones not used by the regime are zero.
type Split struct {
	CGST decimal.Decimal `json:"cgst"`
	SGST decimal.Decimal `json:"sgst"`
	IGST decimal.Decimal `json:"igst"`
}

// Total returns the sum of the three components.
func (s Split) Total() decimal.Decimal {
	return s.CGST.Add(s.SGST).Add(s.IGST)
}

// Negate flips the sign of every component.
func (s Split) Negate() Split {
	return Split{CGST: s.CGST.Neg(), SGST: s.SGST.Neg(), IGST: s.IGST.Neg()}
}

// ZeroSplit returns a split with every component set to zero.
func ZeroSplit() Split {
	return Split{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
}

// ParseRegime accepts the persisted regime values, case-insensitively.
func ParseRegime(raw string) (Regime, error) {
	switch Regime(strings.ToUpper(strings.TrimSpace(raw))) {
	case RegimeCGSTSGST:
		return RegimeCGSTSGST, nil
	case RegimeIGST:
		return RegimeIGST, nil
	case RegimeNone:
		return RegimeNone, nil
	default:
		return "", ErrUnknownRegime
	}
}
