package repository

import (
	"context"
	"time"

	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, merchantID, orderRef string) (*invoicedomain.InvoiceNumberRecord, error) {
	var rec invoicedomain.InvoiceNumberRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, merchant_id, order_ref, prefix, sequence, number, issued_at, metadata, created_at
		 FROM invoice_numbers
		 WHERE merchant_id = ? AND order_ref = ?
		 LIMIT 1`,
		merchantID,
		orderRef,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

// NextSequence bumps the (merchant, prefix) counter in a single statement and
// returns the new value. The row lock taken by the upsert serialises
// concurrent allocators until the surrounding transaction ends.
func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, merchantID, prefix string, now time.Time) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (merchant_id, prefix, last_value, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (merchant_id, prefix)
		 DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = excluded.updated_at
		 RETURNING last_value`,
		merchantID,
		prefix,
		now,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// InsertRecord reports false when another transaction already recorded a
// number for the same order.
func (r *repo) InsertRecord(ctx context.Context, db *gorm.DB, rec invoicedomain.InvoiceNumberRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO invoice_numbers (
			id, merchant_id, order_ref, prefix, sequence, number, issued_at, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (merchant_id, order_ref) DO NOTHING`,
		rec.ID,
		rec.MerchantID,
		rec.OrderRef,
		rec.Prefix,
		rec.Sequence,
		rec.Number,
		rec.IssuedAt,
		rec.Metadata,
		rec.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
