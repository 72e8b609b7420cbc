package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBillingInvoiceRequest_OrderRef(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	morning := BillingInvoiceRequest{MerchantID: "m1", From: day, To: day.Add(12 * time.Hour)}
	evening := BillingInvoiceRequest{MerchantID: "m1", From: day.Add(12 * time.Hour), To: day.Add(24*time.Hour - time.Second)}

	assert.Equal(t, "m1:2024-03-01T00:00:00Z:2024-03-01T12:00:00Z", morning.OrderRef())
	assert.NotEqual(t, morning.OrderRef(), evening.OrderRef())

	// the same instants written in IST give the same key
	ist := time.FixedZone("IST", 5*3600+1800)
	local := BillingInvoiceRequest{MerchantID: "m1", From: day.In(ist), To: day.Add(12 * time.Hour).In(ist)}
	assert.Equal(t, morning.OrderRef(), local.OrderRef())

	midnightIST := BillingInvoiceRequest{MerchantID: "m1", From: time.Date(2024, 3, 1, 0, 0, 0, 0, ist), To: day.Add(12 * time.Hour)}
	assert.Equal(t, "m1:2024-02-29T18:30:00Z:2024-03-01T12:00:00Z", midnightIST.OrderRef())
}
