package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsIdentifiers(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("kind", "ORDER"),
		attribute.String("merchant_id", "m_1"),
		attribute.String("order_id", "o_1"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("kind"), attrs[0].Key)
}

func TestRecordAllocationAndRender(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAllocation(ctx, "order", false)
	m.RecordAllocation(ctx, "order", true)
	m.RecordAllocationConflict(ctx, "order")
	m.RecordRender(ctx, "ORDER", "TAX_INVOICE", 3, 20*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, md := range scope.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), totals["gstinvoice_number_allocations_total"])
	assert.Equal(t, int64(1), totals["gstinvoice_number_allocation_conflicts_total"])
	assert.Equal(t, int64(1), totals["gstinvoice_invoices_rendered_total"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAllocation(context.Background(), "order", false)
		m.RecordRenderFailure(context.Background(), "ORDER", "font")
	})
}

func TestHTTPMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	var counter *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "gstinvoice_http_requests_total" {
			counter = f
		}
	}
	require.NotNil(t, counter)
	require.Len(t, counter.GetMetric(), 1)
	assert.Equal(t, float64(2), counter.GetMetric()[0].GetCounter().GetValue())
}
