package domain

import "errors"

var (
	ErrInvalidMerchant      = errors.New("invalid_merchant")
	ErrInvalidOrderRef      = errors.New("invalid_order_ref")
	ErrInvalidPrefix        = errors.New("invalid_invoice_prefix")
	ErrInvalidSequence      = errors.New("invalid_invoice_sequence")
	ErrAllocationConflict   = errors.New("invoice_number_allocation_conflict")
	ErrInvoiceNotAllocated  = errors.New("invoice_number_not_allocated")
	ErrInconsistentTotals   = errors.New("inconsistent_invoice_totals")
	ErrRenderResource       = errors.New("render_resource_unavailable")
	ErrRenderFailed         = errors.New("render_failed")
	ErrRendererUnconfigured = errors.New("renderer_not_configured")
)
