package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_invoice_numbers_order" (SQLSTATE 23505)`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: invoice_numbers.merchant_id, invoice_numbers.order_ref")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}

func TestIsRetryableErr(t *testing.T) {
	assert.False(t, IsRetryableErr(nil))
	assert.True(t, IsRetryableErr(errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)")))
	assert.True(t, IsRetryableErr(errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")))
	assert.True(t, IsRetryableErr(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsRetryableErr(gorm.ErrDuplicatedKey))
	assert.False(t, IsRetryableErr(errors.New("syntax error at or near")))
}
