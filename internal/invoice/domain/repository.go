package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository persists invoice counters and issued numbers. Every method
// runs on the handle it is given so callers control the transaction.
type Repository interface {
	FindByOrder(ctx context.Context, db *gorm.DB, merchantID, orderRef string) (*InvoiceNumberRecord, error)
	NextSequence(ctx context.Context, db *gorm.DB, merchantID, prefix string, now time.Time) (int64, error)
	InsertRecord(ctx context.Context, db *gorm.DB, rec InvoiceNumberRecord) (bool, error)
}
