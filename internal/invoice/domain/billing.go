package domain

import (
	"time"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
)

// BillingSummary is the platform-fee view of a period: one line per order
// (or per day for fees without an order) and the column totals.
type BillingSummary struct {
	MerchantID   string                 `json:"merchant_id"`
	From         time.Time              `json:"from"`
	To           time.Time              `json:"to"`
	Regime       taxdomain.Regime       `json:"regime"`
	Jurisdiction taxdomain.Jurisdiction `json:"jurisdiction"`
	GSTRate      decimal.Decimal        `json:"gst_rate"`
	LineItems    []LineItem             `json:"line_items"`
	Totals       Totals                 `json:"totals"`
	EntryCount   int                    `json:"entry_count"`
}

// BillingInvoiceRequest bills one merchant for a period of platform fees.
// Supplier is the platform's own tax profile; Recipient is the merchant's.
type BillingInvoiceRequest struct {
	MerchantID string           `json:"merchant_id"`
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Supplier   TaxProfile       `json:"supplier"`
	Recipient  TaxProfile       `json:"recipient"`
	GSTRate    *decimal.Decimal `json:"gst_rate,omitempty"`
}

// OrderRef is the allocation key of a billing invoice; a period is billed
// at most once per merchant. Both bounds keep their full UTC instant so
// periods that share calendar days still get distinct numbers.
func (r BillingInvoiceRequest) OrderRef() string {
	return r.MerchantID + ":" + r.From.UTC().Format(time.RFC3339Nano) + ":" + r.To.UTC().Format(time.RFC3339Nano)
}
