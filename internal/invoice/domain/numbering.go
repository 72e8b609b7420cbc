package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceSequence is the persisted counter for one (merchant, prefix) pair.
// LastValue only ever increases.
type InvoiceSequence struct {
	MerchantID string    `gorm:"primaryKey;type:text" json:"merchant_id"`
	Prefix     string    `gorm:"primaryKey;type:text" json:"prefix"`
	LastValue  int64     `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }

// InvoiceNumberRecord maps an order to the number issued for it. It is
// written once by the allocator and never updated or deleted.
type InvoiceNumberRecord struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	MerchantID string            `gorm:"type:text;not null;uniqueIndex:ux_invoice_numbers_order,priority:1;uniqueIndex:ux_invoice_numbers_sequence,priority:1" json:"merchant_id"`
	OrderRef   string            `gorm:"type:text;not null;uniqueIndex:ux_invoice_numbers_order,priority:2" json:"order_ref"`
	Prefix     string            `gorm:"type:text;not null;uniqueIndex:ux_invoice_numbers_sequence,priority:2" json:"prefix"`
	Sequence   int64             `gorm:"not null;uniqueIndex:ux_invoice_numbers_sequence,priority:3" json:"sequence"`
	Number     string            `gorm:"type:text;not null" json:"number"`
	IssuedAt   time.Time         `gorm:"not null" json:"issued_at"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceNumberRecord) TableName() string { return "invoice_numbers" }

// AllocateRequest asks for the number of one order. Prefix is optional.
type AllocateRequest struct {
	MerchantID string
	OrderRef   string
	Prefix     string
	// Source is recorded in the record metadata (for example "order" or
	// "platform_fee").
	Source string
}

// Allocation is the number issued for an order. Existing is true when the
// number was allocated by an earlier call.
type Allocation struct {
	Number   string    `json:"number"`
	Prefix   string    `json:"prefix"`
	Sequence int64     `json:"sequence"`
	IssuedAt time.Time `json:"issued_at"`
	Existing bool      `json:"existing"`
}

// AllocationFromRecord converts a stored record.
func AllocationFromRecord(rec InvoiceNumberRecord, existing bool) Allocation {
	return Allocation{
		Number:   rec.Number,
		Prefix:   rec.Prefix,
		Sequence: rec.Sequence,
		IssuedAt: rec.IssuedAt,
		Existing: existing,
	}
}
