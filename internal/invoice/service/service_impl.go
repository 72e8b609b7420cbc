package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"github.com/smallbiznis/gstinvoice/internal/config"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/invoice/render"
	ledgerdomain "github.com/smallbiznis/gstinvoice/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/gstinvoice/internal/observability/metrics"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf"
	"github.com/smallbiznis/gstinvoice/pkg/log/ctxlogger"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sourceOrder       = "order"
	sourcePlatformFee = "platform_fee"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Allocator  invoicedomain.Allocator
	Aggregator ledgerdomain.Aggregator
	PDF        pdf.Provider
	Config     *config.InvoicingConfigHolder
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	allocator  invoicedomain.Allocator
	aggregator ledgerdomain.Aggregator
	pdf        pdf.Provider
	cfg        *config.InvoicingConfigHolder
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		log:        p.Log.Named("invoice.service"),
		allocator:  p.Allocator,
		aggregator: p.Aggregator,
		pdf:        p.PDF,
		cfg:        p.Config,
		metrics:    p.Metrics,
	}
}

// GenerateOrderInvoice validates the order, obtains its number and renders
// the customer invoice. Invalid input never consumes a number.
func (s *Service) GenerateOrderInvoice(ctx context.Context, req invoicedomain.OrderInvoiceRequest) (invoicedomain.InvoiceDocument, error) {
	ctx, span := tracer.Start(ctx, "invoice.GenerateOrderInvoice")
	defer span.End()
	ctx = ctxlogger.ContextWithMerchant(ctx, req.Order.MerchantID)

	if err := ValidateOrderInput(req); err != nil {
		return invoicedomain.InvoiceDocument{}, err
	}
	cfg := s.cfg.Get()

	alloc, err := s.allocator.AllocateWithRetry(ctx, invoicedomain.AllocateRequest{
		MerchantID: req.Order.MerchantID,
		OrderRef:   req.Order.ID,
		Prefix:     lo.CoalesceOrEmpty(strings.TrimSpace(req.Prefix), strings.TrimSpace(req.Seller.InvoicePrefix)),
		Source:     sourceOrder,
	})
	if err != nil {
		return invoicedomain.InvoiceDocument{}, err
	}
	span.SetAttributes(attribute.String("invoice.number", alloc.Number))

	inv, err := BuildOrderInvoice(req, alloc, builderOptions(cfg))
	if err != nil {
		return invoicedomain.InvoiceDocument{}, err
	}
	return s.render(ctx, inv, cfg)
}

// PreviewOrderInvoice builds the canonical model of an order that already
// has a number. It never allocates.
func (s *Service) PreviewOrderInvoice(ctx context.Context, req invoicedomain.OrderInvoiceRequest) (invoicedomain.CanonicalInvoice, error) {
	if err := ValidateOrderInput(req); err != nil {
		return invoicedomain.CanonicalInvoice{}, err
	}
	alloc, err := s.allocator.Lookup(ctx, req.Order.MerchantID, req.Order.ID)
	if err != nil {
		return invoicedomain.CanonicalInvoice{}, err
	}
	return BuildOrderInvoice(req, alloc, builderOptions(s.cfg.Get()))
}

func (s *Service) SummarizeBilling(ctx context.Context, req invoicedomain.BillingInvoiceRequest) (invoicedomain.BillingSummary, error) {
	return s.aggregator.Aggregate(ctx, ledgerdomain.AggregateRequest{
		MerchantID:         req.MerchantID,
		From:               req.From,
		To:                 req.To,
		SupplierState:      ProfileState(req.Supplier),
		RecipientState:     ProfileState(req.Recipient),
		SupplierRegistered: req.Supplier.Registered,
		GSTRate:            req.GSTRate,
	})
}

// GenerateBillingInvoice bills a merchant for the platform fees of a
// period. Numbers come from the platform's own sequence and a period is
// numbered once per merchant.
func (s *Service) GenerateBillingInvoice(ctx context.Context, req invoicedomain.BillingInvoiceRequest) (invoicedomain.InvoiceDocument, error) {
	ctx, span := tracer.Start(ctx, "invoice.GenerateBillingInvoice")
	defer span.End()
	ctx = ctxlogger.ContextWithMerchant(ctx, req.MerchantID)

	if err := ValidateBillingInput(req); err != nil {
		return invoicedomain.InvoiceDocument{}, err
	}
	cfg := s.cfg.Get()

	summary, err := s.SummarizeBilling(ctx, req)
	if err != nil {
		return invoicedomain.InvoiceDocument{}, err
	}

	alloc, err := s.allocator.AllocateWithRetry(ctx, invoicedomain.AllocateRequest{
		MerchantID: cfg.PlatformScope,
		OrderRef:   req.OrderRef(),
		Prefix:     lo.CoalesceOrEmpty(strings.TrimSpace(req.Supplier.InvoicePrefix), cfg.PlatformPrefix),
		Source:     sourcePlatformFee,
	})
	if err != nil {
		return invoicedomain.InvoiceDocument{}, err
	}

	inv := BuildBillingInvoice(req, summary, alloc)
	ctxlogger.WithContext(ctx, s.log).Info("platform fee invoice built",
		zap.String("number", inv.Number),
		zap.Int("entries", summary.EntryCount),
		zap.Int("lines", len(inv.LineItems)),
	)
	return s.render(ctx, inv, cfg)
}

// RenderBatch renders invoices concurrently. Each result is independent;
// one failure does not affect the others.
func (s *Service) RenderBatch(ctx context.Context, invoices []invoicedomain.CanonicalInvoice) []invoicedomain.RenderResult {
	cfg := s.cfg.Get()
	workers := cfg.PDF.BatchWorkers
	if workers <= 0 {
		workers = 1
	}

	results := make([]invoicedomain.RenderResult, len(invoices))
	p := pool.New().WithMaxGoroutines(workers)
	for i, inv := range invoices {
		p.Go(func() {
			doc, err := s.render(ctx, inv, cfg)
			results[i] = invoicedomain.RenderResult{Document: doc, Err: err}
		})
	}
	p.Wait()
	return results
}

func (s *Service) Lookup(ctx context.Context, merchantID, orderRef string) (invoicedomain.Allocation, error) {
	return s.allocator.Lookup(ctx, merchantID, orderRef)
}

func (s *Service) render(ctx context.Context, inv invoicedomain.CanonicalInvoice, cfg config.InvoicingConfig) (invoicedomain.InvoiceDocument, error) {
	if s.pdf == nil {
		return invoicedomain.InvoiceDocument{}, invoicedomain.ErrRendererUnconfigured
	}
	if !inv.Consistent() {
		s.metrics.RecordRenderFailure(ctx, string(inv.Kind), "inconsistent_totals")
		return invoicedomain.InvoiceDocument{}, invoicedomain.ErrInconsistentTotals
	}

	start := time.Now()
	doc := render.Document(inv, render.Options{
		CurrencySymbol: cfg.PDF.CurrencySymbol,
		Location:       cfg.Location(),
	})
	out, err := s.pdf.Render(ctx, doc)
	if err != nil {
		reason := "render_failed"
		switch {
		case errors.Is(err, pdf.ErrResource):
			reason = "resource"
			err = fmt.Errorf("%w: %w", invoicedomain.ErrRenderResource, err)
		case ctx.Err() != nil:
			reason = "cancelled"
		default:
			err = fmt.Errorf("%w: %w", invoicedomain.ErrRenderFailed, err)
		}
		s.metrics.RecordRenderFailure(ctx, string(inv.Kind), reason)
		ctxlogger.WithContext(ctx, s.log).Error("invoice render failed",
			zap.String("number", inv.Number),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return invoicedomain.InvoiceDocument{}, err
	}

	s.metrics.RecordRender(ctx, string(inv.Kind), string(inv.Type), out.Pages, time.Since(start))
	return invoicedomain.InvoiceDocument{
		Invoice:  inv,
		PDF:      out.PDF,
		FileName: FileName(inv),
		Pages:    out.Pages,
	}, nil
}

// FileName is the download name of an invoice, e.g. invoice-mrc-000045.pdf.
func FileName(inv invoicedomain.CanonicalInvoice) string {
	name := slug.Make(inv.Number)
	if name == "" {
		name = "draft"
	}
	return "invoice-" + name + ".pdf"
}

func builderOptions(cfg config.InvoicingConfig) BuilderOptions {
	rate := cfg.GSTRate()
	return BuilderOptions{DefaultGSTRate: &rate, Location: cfg.Location()}
}
