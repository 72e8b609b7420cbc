package domain

import (
	"context"
	"time"

	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"gorm.io/gorm"
)

// Repository reads fee-ledger entries. Entries are never mutated.
type Repository interface {
	ListPlatformFees(ctx context.Context, db *gorm.DB, merchantID string, from, to time.Time) ([]LedgerEntry, error)
	Append(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
}

// Aggregator turns a period of fee-ledger entries into invoice lines.
type Aggregator interface {
	Aggregate(ctx context.Context, req AggregateRequest) (invoicedomain.BillingSummary, error)
}
