package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	OtlpEnabled      bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
}

// Metrics exposes invoicing instruments.
type Metrics struct {
	allocations    metric.Int64Counter
	conflicts      metric.Int64Counter
	invoices       metric.Int64Counter
	renderFailures metric.Int64Counter
	renderDuration metric.Float64Histogram
	renderedPages  metric.Int64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled || !cfg.OtlpEnabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the invoicing instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "gstinvoice"
	}
	meter := provider.Meter(name)

	allocations, err := meter.Int64Counter("gstinvoice_number_allocations_total")
	if err != nil {
		return nil, err
	}
	conflicts, err := meter.Int64Counter("gstinvoice_number_allocation_conflicts_total")
	if err != nil {
		return nil, err
	}
	invoices, err := meter.Int64Counter("gstinvoice_invoices_rendered_total")
	if err != nil {
		return nil, err
	}
	renderFailures, err := meter.Int64Counter("gstinvoice_render_failures_total")
	if err != nil {
		return nil, err
	}
	renderDuration, err := meter.Float64Histogram("gstinvoice_render_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	renderedPages, err := meter.Int64Histogram("gstinvoice_rendered_pages")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		allocations:    allocations,
		conflicts:      conflicts,
		invoices:       invoices,
		renderFailures: renderFailures,
		renderDuration: renderDuration,
		renderedPages:  renderedPages,
	}, nil
}

// RecordAllocation counts an allocation; existing is true for idempotent replays.
func (m *Metrics) RecordAllocation(ctx context.Context, source string, existing bool) {
	if m == nil {
		return
	}
	outcome := "new"
	if existing {
		outcome = "existing"
	}
	attrs := FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.String("outcome", outcome),
	)
	m.allocations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAllocationConflict counts a lost allocation race.
func (m *Metrics) RecordAllocationConflict(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRender records a finished render.
func (m *Metrics) RecordRender(ctx context.Context, kind, invoiceType string, pages int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(
		attribute.String("kind", kind),
		attribute.String("invoice_type", invoiceType),
	)...)
	m.invoices.Add(ctx, 1, attrs)
	m.renderDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.renderedPages.Record(ctx, int64(pages), attrs)
}

// RecordRenderFailure counts a render that produced no document.
func (m *Metrics) RecordRenderFailure(ctx context.Context, kind, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	)
	m.renderFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"source":       {},
	"outcome":      {},
	"kind":         {},
	"invoice_type": {},
	"reason":       {},
	"route":        {},
	"status_code":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Merchant and order identifiers never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
