// Package domain contains the invoice models shared by numbering, building
// and rendering.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
)

// Kind tells which counterparty an invoice is issued to.
type Kind string

const (
	// KindOrder is a customer-facing invoice for a storefront order.
	KindOrder Kind = "ORDER"
	// KindPlatformFee bills a merchant for platform fees over a period.
	KindPlatformFee Kind = "PLATFORM_FEE"
)

// Type is the legal document type printed on the invoice.
type Type string

const (
	TypeTaxInvoice   Type = "TAX_INVOICE"
	TypeBillOfSupply Type = "BILL_OF_SUPPLY"
)

// TypeFor returns TAX_INVOICE for GST-registered sellers, else BILL_OF_SUPPLY.
func TypeFor(sellerRegistered bool) Type {
	if sellerRegistered {
		return TypeTaxInvoice
	}
	return TypeBillOfSupply
}

// Currency is fixed; multi-currency invoicing is not supported.
const Currency = "INR"

// LineItem is one row of an invoice. CGST/SGST and IGST are mutually
// exclusive; all four money fields are rounded to 2 decimals on their own.
type LineItem struct {
	CorrelationID  *string          `json:"correlation_id"`
	OrderRef       string           `json:"order_ref,omitempty"`
	Description    string           `json:"description"`
	Classification string           `json:"classification,omitempty"`
	Quantity       int64            `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	GSTRate        decimal.Decimal  `json:"gst_rate"`
	TaxableValue   decimal.Decimal  `json:"taxable_value"`
	CGST           decimal.Decimal  `json:"cgst"`
	SGST           decimal.Decimal  `json:"sgst"`
	IGST           decimal.Decimal  `json:"igst"`
	Total          decimal.Decimal  `json:"total"`
	Regime         taxdomain.Regime `json:"-"`
}

// NewLineItem fills the tax fields from split and derives the line total.
func NewLineItem(taxable decimal.Decimal, split taxdomain.Split) LineItem {
	return LineItem{
		TaxableValue: taxable,
		CGST:         split.CGST,
		SGST:         split.SGST,
		IGST:         split.IGST,
		Total:        taxable.Add(split.CGST).Add(split.SGST).Add(split.IGST),
	}
}

// TaxTotal returns the sum of the three tax fields.
func (l LineItem) TaxTotal() decimal.Decimal {
	return l.CGST.Add(l.SGST).Add(l.IGST)
}

// Totals are the column sums of the line items.
type Totals struct {
	TaxableValue decimal.Decimal `json:"taxable_value"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// ZeroTotals returns totals with every field set to zero.
func ZeroTotals() Totals {
	return Totals{
		TaxableValue: decimal.Zero,
		CGST:         decimal.Zero,
		SGST:         decimal.Zero,
		IGST:         decimal.Zero,
		GrandTotal:   decimal.Zero,
	}
}

// Add accumulates an already-rounded line into the totals.
func (t Totals) Add(line LineItem) Totals {
	return Totals{
		TaxableValue: t.TaxableValue.Add(line.TaxableValue),
		CGST:         t.CGST.Add(line.CGST),
		SGST:         t.SGST.Add(line.SGST),
		IGST:         t.IGST.Add(line.IGST),
		GrandTotal:   t.GrandTotal.Add(line.Total),
	}
}

// TaxTotal returns the sum of the tax columns.
func (t Totals) TaxTotal() decimal.Decimal {
	return t.CGST.Add(t.SGST).Add(t.IGST)
}

// SumTotals folds line items into totals.
func SumTotals(lines []LineItem) Totals {
	totals := ZeroTotals()
	for _, line := range lines {
		totals = totals.Add(line)
	}
	return totals
}

// Charges are order-level figures taken verbatim from the order snapshot.
// AmountPayable is the authoritative bill; it may differ from
// Totals.GrandTotal plus shipping minus discount by rounding noise.
type Charges struct {
	Shipping      decimal.Decimal `json:"shipping"`
	Discount      decimal.Decimal `json:"discount"`
	AmountPayable decimal.Decimal `json:"amount_payable"`
}

// Party is the frozen identity of a seller or buyer as printed on an invoice.
type Party struct {
	Name         string   `json:"name"`
	LegalName    string   `json:"legal_name,omitempty"`
	GSTIN        string   `json:"gstin,omitempty"`
	Address      string   `json:"address,omitempty"`
	AddressLines []string `json:"address_lines,omitempty"`
	State        string   `json:"state,omitempty"`
	StateCode    string   `json:"state_code,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Registered   bool     `json:"registered"`
}

// CanonicalInvoice is the render-ready snapshot of one invoice. It is built
// once per request and never updated; a reissue builds a new value that
// carries the same number.
type CanonicalInvoice struct {
	Kind          Kind             `json:"kind"`
	Number        string           `json:"number"`
	IssuedAt      time.Time        `json:"issued_at"`
	Type          Type             `json:"type"`
	Cancelled     bool             `json:"cancelled"`
	OrderRef      string           `json:"order_ref,omitempty"`
	OrderDate     *time.Time       `json:"order_date,omitempty"`
	PeriodStart   *time.Time       `json:"period_start,omitempty"`
	PeriodEnd     *time.Time       `json:"period_end,omitempty"`
	Seller        Party            `json:"seller"`
	Buyer         Party            `json:"buyer"`
	ShipTo        *Party           `json:"ship_to,omitempty"`
	PlaceOfSupply string           `json:"place_of_supply"`
	Regime        taxdomain.Regime `json:"regime"`
	LineItems     []LineItem       `json:"line_items"`
	Totals        Totals           `json:"totals"`
	Charges       *Charges         `json:"charges,omitempty"`
	Currency      string           `json:"currency"`
}

// Consistent reports whether the totals equal the column sums of the lines.
// A false result is an internal defect, unlike a mismatch against the
// order's own stored total.
func (c CanonicalInvoice) Consistent() bool {
	sum := SumTotals(c.LineItems)
	return sum.TaxableValue.Equal(c.Totals.TaxableValue) &&
		sum.CGST.Equal(c.Totals.CGST) &&
		sum.SGST.Equal(c.Totals.SGST) &&
		sum.IGST.Equal(c.Totals.IGST) &&
		sum.GrandTotal.Equal(c.Totals.GrandTotal)
}
