package domain

import "github.com/shopspring/decimal"

// Resolver decides the GST regime for a supply and computes tax splits.
// Implementations are pure and safe for concurrent use.
type Resolver interface {
	Resolve(supplierState, recipientState string) Jurisdiction
	ResolveCustomer(sellerRegistered bool, sellerState, buyerState string) Jurisdiction
	SplitTax(regime Regime, taxable, rate decimal.Decimal) (Split, error)
}
