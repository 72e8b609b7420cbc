package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregateRequest selects the platform fees of one merchant for a period.
type AggregateRequest struct {
	MerchantID     string
	From           time.Time
	To             time.Time
	SupplierState  string
	RecipientState string
	// SupplierRegistered false means the platform issues a bill of supply
	// and every line carries zero tax.
	SupplierRegistered bool
	// GSTRate defaults to 18 when nil.
	GSTRate *decimal.Decimal
}
