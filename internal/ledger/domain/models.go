package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryType classifies a fee-ledger fact.
type EntryType string

const (
	// EntryTypePlatformFee is the only type billed to merchants.
	EntryTypePlatformFee EntryType = "PLATFORM_FEE"
	EntryTypePayout      EntryType = "PAYOUT"
	EntryTypeRefund      EntryType = "REFUND"
	EntryTypeAdjustment  EntryType = "ADJUSTMENT"
)

// EntryStatus is the settlement state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending EntryStatus = "PENDING"
	EntryStatusSettled EntryStatus = "SETTLED"
	// EntryStatusFailed marks a reversed or void fact; it is never billed.
	EntryStatusFailed EntryStatus = "FAILED"
)

// LedgerEntry is an append-only financial fact recorded against a merchant.
// AmountMinor is signed and expressed in paise.
type LedgerEntry struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID  string       `gorm:"type:text;not null;index:ix_fee_ledger_merchant_time,priority:1" json:"merchant_id"`
	Type        EntryType    `gorm:"type:text;not null;index" json:"type"`
	Status      EntryStatus  `gorm:"type:text;not null" json:"status"`
	AmountMinor int64        `gorm:"not null" json:"amount_minor"`
	OrderID     *string      `gorm:"type:text" json:"order_id,omitempty"`
	OrderNumber *string      `gorm:"type:text" json:"order_number,omitempty"`
	OccurredAt  time.Time    `gorm:"not null;index:ix_fee_ledger_merchant_time,priority:2" json:"occurred_at"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "fee_ledger_entries" }

// Billable reports whether the entry participates in a platform-fee invoice.
func (e LedgerEntry) Billable() bool {
	return e.Type == EntryTypePlatformFee && e.Status != EntryStatusFailed
}
