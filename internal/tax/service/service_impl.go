package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	"github.com/smallbiznis/gstinvoice/pkg/money"
)

var two = decimal.NewFromInt(2)

type resolver struct{}

// NewResolver returns the stateless GST jurisdiction resolver.
func NewResolver() taxdomain.Resolver {
	return resolver{}
}

// Resolve compares the supplier and recipient states. An unknown recipient
// state never yields CGST_SGST because same-state supply cannot be assumed.
func (resolver) Resolve(supplierState, recipientState string) taxdomain.Jurisdiction {
	return Resolve(supplierState, recipientState)
}

func (resolver) ResolveCustomer(sellerRegistered bool, sellerState, buyerState string) taxdomain.Jurisdiction {
	return ResolveCustomer(sellerRegistered, sellerState, buyerState)
}

func (resolver) SplitTax(regime taxdomain.Regime, taxable, rate decimal.Decimal) (taxdomain.Split, error) {
	return SplitTax(regime, taxable, rate)
}

// Resolve is the package-level form of Resolver.Resolve.
func Resolve(supplierState, recipientState string) taxdomain.Jurisdiction {
	supplier, supplierOK := taxdomain.NormalizeState(supplierState)
	recipient, recipientOK := taxdomain.NormalizeState(recipientState)

	j := taxdomain.Jurisdiction{
		Regime:         taxdomain.RegimeIGST,
		SupplierState:  supplier,
		RecipientState: recipient,
	}
	if supplierOK && recipientOK && supplier == recipient {
		j.Regime = taxdomain.RegimeCGSTSGST
	}
	return j
}

// ResolveCustomer applies the customer-invoice rule: no tax at all when the
// seller is not GST registered, otherwise the regular state comparison.
func ResolveCustomer(sellerRegistered bool, sellerState, buyerState string) taxdomain.Jurisdiction {
	j := Resolve(sellerState, buyerState)
	if !sellerRegistered {
		j.Regime = taxdomain.RegimeNone
	}
	return j
}

// SplitTax computes taxable*rate/100 and splits it for the regime.
// For CGST_SGST each half is rounded on its own so both halves always match.
func SplitTax(regime taxdomain.Regime, taxable, rate decimal.Decimal) (taxdomain.Split, error) {
	if taxable.IsNegative() {
		return taxdomain.Split{}, taxdomain.ErrNegativeAmount
	}
	if rate.IsNegative() {
		return taxdomain.Split{}, taxdomain.ErrNegativeRate
	}

	split := taxdomain.ZeroSplit()
	gst := money.Percent(taxable, rate)

	switch regime {
	case taxdomain.RegimeCGSTSGST:
		half := gst.Div(two)
		split.CGST = money.Round2(half)
		split.SGST = money.Round2(half)
	case taxdomain.RegimeIGST:
		split.IGST = money.Round2(gst)
	case taxdomain.RegimeNone:
	default:
		return taxdomain.Split{}, fmt.Errorf("%w: %q", taxdomain.ErrUnknownRegime, regime)
	}
	return split, nil
}

// SplitSigned taxes the magnitude of a possibly negative amount and restores
// the sign, so credit lines mirror the tax of the charge they reverse.
func SplitSigned(regime taxdomain.Regime, taxable, rate decimal.Decimal) (taxdomain.Split, error) {
	if !taxable.IsNegative() {
		return SplitTax(regime, taxable, rate)
	}
	split, err := SplitTax(regime, taxable.Abs(), rate)
	if err != nil {
		return taxdomain.Split{}, err
	}
	return split.Negate(), nil
}

// PlaceOfSupply renders the place-of-supply label. The buyer's state wins,
// then the seller's, then a generic fallback.
func PlaceOfSupply(buyerState, sellerState string) string {
	for _, raw := range []string{buyerState, sellerState} {
		if code, ok := taxdomain.NormalizeState(raw); ok {
			return fmt.Sprintf("%s (%s)", taxdomain.States[code], code)
		}
	}
	for _, raw := range []string{buyerState, sellerState} {
		if raw != "" {
			return raw
		}
	}
	return "Not specified"
}
