package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is the order's own snapshot of a purchased line. Prices are in
// paise and are never re-read from the live catalog.
type OrderItem struct {
	ID             string           `json:"id"`
	Name           string           `json:"name" validate:"required"`
	SKU            string           `json:"sku,omitempty"`
	HSNCode        string           `json:"hsn_code,omitempty"`
	Quantity       int64            `json:"quantity" validate:"gt=0"`
	UnitPriceMinor int64            `json:"unit_price_minor" validate:"gte=0"`
	GSTRate        *decimal.Decimal `json:"gst_rate,omitempty"`
}

// Order is the storefront order aggregate an invoice is built from.
// Money fields are paise. Optional addresses follow the defaulting rules in
// BillingAddressOrDefault and ShippingAddressOrDefault.
type Order struct {
	ID              string      `json:"id" validate:"required"`
	MerchantID      string      `json:"merchant_id" validate:"required"`
	Number          string      `json:"number,omitempty"`
	PlacedAt        time.Time   `json:"placed_at"`
	Status          string      `json:"status,omitempty"`
	Cancelled       bool        `json:"cancelled"`
	Items           []OrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingMinor   int64       `json:"shipping_minor" validate:"gte=0"`
	DiscountMinor   int64       `json:"discount_minor" validate:"gte=0"`
	TotalMinor      int64       `json:"total_minor" validate:"gte=0"`
	CustomerName    string      `json:"customer_name,omitempty"`
	CustomerEmail   string      `json:"customer_email,omitempty"`
	CustomerPhone   string      `json:"customer_phone,omitempty"`
	BillingAddress  *Address    `json:"billing_address,omitempty"`
	ShippingAddress *Address    `json:"shipping_address,omitempty"`
}

// Reference is the human order reference: the order number, else the id.
func (o Order) Reference() string {
	if o.Number != "" {
		return o.Number
	}
	return o.ID
}

// BillingAddressOrDefault falls back to the shipping address.
func (o Order) BillingAddressOrDefault() Address {
	switch {
	case o.BillingAddress != nil:
		return *o.BillingAddress
	case o.ShippingAddress != nil:
		return *o.ShippingAddress
	default:
		return Address{}
	}
}

// ShippingAddressOrDefault falls back to the billing address.
func (o Order) ShippingAddressOrDefault() Address {
	switch {
	case o.ShippingAddress != nil:
		return *o.ShippingAddress
	case o.BillingAddress != nil:
		return *o.BillingAddress
	default:
		return Address{}
	}
}
