package domain

import "context"

// OrderInvoiceRequest carries everything needed to invoice one order.
// Buyer is nil for walk-in customers without a tax profile; the order's
// own customer and address fields are used then.
type OrderInvoiceRequest struct {
	Order  Order       `json:"order"`
	Seller TaxProfile  `json:"seller"`
	Buyer  *TaxProfile `json:"buyer,omitempty"`
	// Prefix overrides the seller's invoice prefix.
	Prefix string `json:"prefix,omitempty"`
}

// InvoiceDocument is a rendered invoice.
type InvoiceDocument struct {
	Invoice  CanonicalInvoice `json:"invoice"`
	PDF      []byte           `json:"-"`
	FileName string           `json:"file_name"`
	Pages    int              `json:"pages"`
}

// RenderResult is one outcome of a batch render.
type RenderResult struct {
	Document InvoiceDocument
	Err      error
}

// Allocator issues invoice numbers.
type Allocator interface {
	Allocate(ctx context.Context, req AllocateRequest) (Allocation, error)
	AllocateWithRetry(ctx context.Context, req AllocateRequest) (Allocation, error)
	Lookup(ctx context.Context, merchantID, orderRef string) (Allocation, error)
}

// Service generates order and platform-fee invoices.
type Service interface {
	GenerateOrderInvoice(ctx context.Context, req OrderInvoiceRequest) (InvoiceDocument, error)
	PreviewOrderInvoice(ctx context.Context, req OrderInvoiceRequest) (CanonicalInvoice, error)
	SummarizeBilling(ctx context.Context, req BillingInvoiceRequest) (BillingSummary, error)
	GenerateBillingInvoice(ctx context.Context, req BillingInvoiceRequest) (InvoiceDocument, error)
	RenderBatch(ctx context.Context, invoices []CanonicalInvoice) []RenderResult
	Lookup(ctx context.Context, merchantID, orderRef string) (Allocation, error)
}
