package ctxlogger

import (
	"context"
	"testing"

	"github.com/smallbiznis/gstinvoice/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationAndMerchant(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-1")
	ctx = ContextWithMerchant(ctx, "m_42")
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "cid-1", fields["correlation_id"])
		assert.Equal(t, "m_42", fields["merchant_id"])
		assert.Equal(t, "", fields["trace_id"])
	}
}
