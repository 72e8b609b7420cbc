package repository

import (
	"context"
	"time"

	ledgerdomain "github.com/smallbiznis/gstinvoice/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) ListPlatformFees(ctx context.Context, db *gorm.DB, merchantID string, from, to time.Time) ([]ledgerdomain.LedgerEntry, error) {
	var entries []ledgerdomain.LedgerEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, merchant_id, type, status, amount_minor, order_id, order_number, occurred_at, created_at
		 FROM fee_ledger_entries
		 WHERE merchant_id = ? AND type = ? AND status <> ?
		   AND occurred_at >= ? AND occurred_at <= ?
		 ORDER BY occurred_at ASC, id ASC`,
		merchantID,
		ledgerdomain.EntryTypePlatformFee,
		ledgerdomain.EntryStatusFailed,
		from,
		to,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, entry *ledgerdomain.LedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_ledger_entries (id, merchant_id, type, status, amount_minor, order_id, order_number, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.MerchantID,
		entry.Type,
		entry.Status,
		entry.AmountMinor,
		entry.OrderID,
		entry.OrderNumber,
		entry.OccurredAt,
		entry.CreatedAt,
	).Error
}
