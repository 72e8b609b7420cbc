package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "INSERT", operationFromSQL("INSERT INTO invoice_numbers (id) VALUES (?)"))
	assert.Equal(t, "SELECT", operationFromSQL("  (select 1)"))
	assert.Equal(t, "UPDATE", operationFromSQL("WITH x AS (VALUES (1)) UPDATE invoice_sequences SET last_value = 1"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
