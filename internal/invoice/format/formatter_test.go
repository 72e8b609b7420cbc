package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2024, 7, 9, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		template string
		prefix   string
		seq      int64
		want     string
	}{
		{"default", DefaultInvoiceNumberTemplate, "MRC", 45, "MRC-000045"},
		{"dated", "{PREFIX}/{YYYY}{MM}{DD}/{SEQ4}", "INV", 7, "INV/20240709/0007"},
		{"short year", "{PREFIX}{YY}-{SEQ}", "PLT", 1234, "PLT24-1234"},
		{"overflowing pad", "{PREFIX}-{SEQ2}", "A", 12345, "A-12345"},
		{"no prefix token", "{SEQ3}", "", 9, "009"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatInvoiceNumber(tc.template, issued, tc.prefix, tc.seq)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatInvoiceNumberErrors(t *testing.T) {
	issued := time.Now()

	_, err := FormatInvoiceNumber("", issued, "INV", 1)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, "INV", 0)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, "", 1)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("{PREFIX}-{NOPE}", issued, "INV", 1)
	assert.Error(t, err)
}
