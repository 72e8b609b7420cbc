package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/gstinvoice/internal/config"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/invoice/repository"
	ledgerdomain "github.com/smallbiznis/gstinvoice/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/gstinvoice/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/gstinvoice/internal/ledger/service"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db        *gorm.DB
	svc       invoicedomain.Service
	allocator *Allocator
}

func newServiceFixture(t *testing.T, mutate func(*config.InvoicingConfig)) serviceFixture {
	t.Helper()
	db := newAllocatorDB(t)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.LedgerEntry{}))

	cfg := config.DefaultInvoicingConfig()
	cfg.PDF.Compress = false
	if mutate != nil {
		mutate(&cfg)
	}
	holder := config.NewStaticInvoicingConfigHolder(cfg)

	alloc := newTestAllocator(t, db, repository.Provide())
	alloc.cfg = holder
	agg := ledgerservice.NewAggregator(ledgerservice.Params{
		DB:     db,
		Repo:   ledgerrepo.Provide(),
		Log:    zap.NewNop(),
		Config: holder,
	})
	provider := pdf.NewProvider(pdf.Params{Log: zap.NewNop(), Config: holder})

	return serviceFixture{
		db:        db,
		allocator: alloc,
		svc: NewService(ServiceParam{
			Log:        zap.NewNop(),
			Allocator:  alloc,
			Aggregator: agg,
			PDF:        provider,
			Config:     holder,
		}),
	}
}

func countRecords(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&invoicedomain.InvoiceNumberRecord{}).Count(&n).Error)
	return n
}

func TestService_GenerateOrderInvoice(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()
	req := invoicedomain.OrderInvoiceRequest{Order: singleItemOrder("27"), Seller: registeredSeller("27")}

	doc, err := f.svc.GenerateOrderInvoice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "MRC-000001", doc.Invoice.Number)
	assert.Equal(t, "invoice-mrc-000001.pdf", doc.FileName)
	assert.Equal(t, 1, doc.Pages)
	assert.True(t, bytes.HasPrefix(doc.PDF, []byte("%PDF-")))
	assert.True(t, dec("1180").Equal(doc.Invoice.Totals.GrandTotal))

	again, err := f.svc.GenerateOrderInvoice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "MRC-000001", again.Invoice.Number)
	assert.Equal(t, int64(1), countRecords(t, f.db))
}

func TestService_GenerateOrderInvoice_PrefixOverride(t *testing.T) {
	f := newServiceFixture(t, nil)
	req := invoicedomain.OrderInvoiceRequest{Order: singleItemOrder("29"), Seller: registeredSeller("27"), Prefix: "web"}

	doc, err := f.svc.GenerateOrderInvoice(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "WEB-000001", doc.Invoice.Number)
}

func TestService_InvalidOrderAllocatesNothing(t *testing.T) {
	f := newServiceFixture(t, nil)
	order := singleItemOrder("27")
	order.Items[0].Quantity = 0

	_, err := f.svc.GenerateOrderInvoice(context.Background(), invoicedomain.OrderInvoiceRequest{Order: order, Seller: registeredSeller("27")})
	require.Error(t, err)
	var verrs invoicedomain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Equal(t, int64(0), countRecords(t, f.db))
}

func TestService_CancelledOrderWatermarksEveryPage(t *testing.T) {
	f := newServiceFixture(t, nil)
	order := singleItemOrder("27")
	order.Cancelled = true
	order.Items = nil
	for i := 0; i < 80; i++ {
		order.Items = append(order.Items, invoicedomain.OrderItem{
			ID:             fmt.Sprintf("it%d", i),
			Name:           fmt.Sprintf("Handloom Saree %02d", i),
			HSNCode:        "5007",
			Quantity:       1,
			UnitPriceMinor: 10000,
		})
	}

	doc, err := f.svc.GenerateOrderInvoice(context.Background(), invoicedomain.OrderInvoiceRequest{Order: order, Seller: registeredSeller("27")})
	require.NoError(t, err)
	require.GreaterOrEqual(t, doc.Pages, 2)
	assert.True(t, doc.Invoice.Cancelled)
	assert.Equal(t, doc.Pages, bytes.Count(doc.PDF, []byte("/Type /Page\n")))
	assert.Equal(t, doc.Pages, bytes.Count(doc.PDF, []byte("(CANCELLED) Tj")))
}

func TestService_PreviewOrderInvoice(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()
	req := invoicedomain.OrderInvoiceRequest{Order: singleItemOrder("29"), Seller: registeredSeller("27")}

	_, err := f.svc.PreviewOrderInvoice(ctx, req)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotAllocated)
	assert.Equal(t, int64(0), countRecords(t, f.db))

	doc, err := f.svc.GenerateOrderInvoice(ctx, req)
	require.NoError(t, err)

	inv, err := f.svc.PreviewOrderInvoice(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, doc.Invoice.Number, inv.Number)
	assert.True(t, dec("180").Equal(inv.Totals.IGST))

	alloc, err := f.svc.Lookup(ctx, "m1", "ord_123")
	require.NoError(t, err)
	assert.Equal(t, "MRC-000001", alloc.Number)
}

func seedFees(t *testing.T, db *gorm.DB) {
	t.Helper()
	repo := ledgerrepo.Provide()
	at := time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC)
	orderID, orderNumber := "ord_1", "1001"
	entries := []ledgerdomain.LedgerEntry{
		{ID: 1, MerchantID: "m1", Type: ledgerdomain.EntryTypePlatformFee, Status: ledgerdomain.EntryStatusSettled, AmountMinor: 100000, OrderID: &orderID, OrderNumber: &orderNumber, OccurredAt: at, CreatedAt: at},
		{ID: 2, MerchantID: "m1", Type: ledgerdomain.EntryTypePlatformFee, Status: ledgerdomain.EntryStatusFailed, AmountMinor: 70000, OccurredAt: at, CreatedAt: at},
		{ID: 3, MerchantID: "m2", Type: ledgerdomain.EntryTypePlatformFee, Status: ledgerdomain.EntryStatusSettled, AmountMinor: 90000, OccurredAt: at, CreatedAt: at},
	}
	for i := range entries {
		require.NoError(t, repo.Append(context.Background(), db, &entries[i]))
	}
}

func billingRequest() invoicedomain.BillingInvoiceRequest {
	platform := registeredSeller("27")
	platform.InvoicePrefix = ""
	return invoicedomain.BillingInvoiceRequest{
		MerchantID: "m1",
		From:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
		Supplier:   platform,
		Recipient:  invoicedomain.TaxProfile{LegalName: "Merchant One", Address: invoicedomain.Address{StateCode: "29"}},
	}
}

func TestService_GenerateBillingInvoice(t *testing.T) {
	f := newServiceFixture(t, nil)
	seedFees(t, f.db)
	ctx := context.Background()

	summary, err := f.svc.SummarizeBilling(ctx, billingRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EntryCount)

	doc, err := f.svc.GenerateBillingInvoice(ctx, billingRequest())
	require.NoError(t, err)
	assert.Equal(t, "PLT-000001", doc.Invoice.Number)
	assert.Equal(t, invoicedomain.KindPlatformFee, doc.Invoice.Kind)
	assert.True(t, dec("1180").Equal(doc.Invoice.Totals.GrandTotal))
	assert.True(t, bytes.HasPrefix(doc.PDF, []byte("%PDF-")))

	// billing numbers come from the platform sequence, not the merchant's
	alloc, err := f.allocator.Lookup(ctx, "platform", "m1:2024-03-01T00:00:00Z:2024-03-31T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, "PLT-000001", alloc.Number)

	again, err := f.svc.GenerateBillingInvoice(ctx, billingRequest())
	require.NoError(t, err)
	assert.Equal(t, "PLT-000001", again.Invoice.Number)
}

func TestService_BillingSummaryMatchesInvoice(t *testing.T) {
	for _, registered := range []bool{true, false} {
		f := newServiceFixture(t, nil)
		seedFees(t, f.db)
		ctx := context.Background()
		req := billingRequest()
		req.Supplier.Registered = registered
		if !registered {
			req.Supplier.GSTIN = ""
		}

		summary, err := f.svc.SummarizeBilling(ctx, req)
		require.NoError(t, err)
		doc, err := f.svc.GenerateBillingInvoice(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, summary.Regime, doc.Invoice.Regime, "registered=%v", registered)
		assert.True(t, summary.Totals.TaxableValue.Equal(doc.Invoice.Totals.TaxableValue))
		assert.True(t, summary.Totals.TaxTotal().Equal(doc.Invoice.Totals.TaxTotal()))
		assert.True(t, summary.Totals.GrandTotal.Equal(doc.Invoice.Totals.GrandTotal), "registered=%v", registered)
		require.Len(t, doc.Invoice.LineItems, len(summary.LineItems))
		for i := range summary.LineItems {
			assert.True(t, summary.LineItems[i].Total.Equal(doc.Invoice.LineItems[i].Total))
			assert.True(t, summary.LineItems[i].GSTRate.Equal(doc.Invoice.LineItems[i].GSTRate))
		}
	}

	f := newServiceFixture(t, nil)
	seedFees(t, f.db)
	req := billingRequest()
	req.Supplier.Registered = false
	req.Supplier.GSTIN = ""
	summary, err := f.svc.SummarizeBilling(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(summary.Totals.GrandTotal))
}

func TestService_GenerateBillingInvoice_InvalidPeriod(t *testing.T) {
	f := newServiceFixture(t, nil)
	req := billingRequest()
	req.From, req.To = req.To, req.From

	_, err := f.svc.GenerateBillingInvoice(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, int64(0), countRecords(t, f.db))
}

func TestService_RenderBatchIsolatesFailures(t *testing.T) {
	f := newServiceFixture(t, func(c *config.InvoicingConfig) { c.PDF.BatchWorkers = 2 })
	req := invoicedomain.OrderInvoiceRequest{Order: singleItemOrder("27"), Seller: registeredSeller("27")}

	good, err := BuildOrderInvoice(req, testAlloc, BuilderOptions{})
	require.NoError(t, err)
	broken := good
	broken.Number = "MRC-000046"
	broken.Totals.GrandTotal = dec("1")

	results := f.svc.RenderBatch(context.Background(), []invoicedomain.CanonicalInvoice{good, broken, good})
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "invoice-mrc-000045.pdf", results[0].Document.FileName)
	assert.ErrorIs(t, results[1].Err, invoicedomain.ErrInconsistentTotals)
	assert.Nil(t, results[1].Document.PDF)
	require.NoError(t, results[2].Err)
}

func TestService_MissingFontIsResourceError(t *testing.T) {
	f := newServiceFixture(t, func(c *config.InvoicingConfig) {
		missing := filepath.Join(t.TempDir(), "missing.ttf")
		c.PDF.RegularFont = missing
		c.PDF.BoldFont = missing
	})
	req := invoicedomain.OrderInvoiceRequest{Order: singleItemOrder("27"), Seller: registeredSeller("27")}

	doc, err := f.svc.GenerateOrderInvoice(context.Background(), req)
	assert.ErrorIs(t, err, invoicedomain.ErrRenderResource)
	assert.ErrorIs(t, err, pdf.ErrResource)
	assert.Nil(t, doc.PDF)
}

func TestService_RendererUnconfigured(t *testing.T) {
	svc := &Service{log: zap.NewNop(), cfg: config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig())}
	results := svc.RenderBatch(context.Background(), []invoicedomain.CanonicalInvoice{{}})
	assert.ErrorIs(t, results[0].Err, invoicedomain.ErrRendererUnconfigured)
}

func TestService_ConcurrentOrdersGetDistinctNumbers(t *testing.T) {
	f := newServiceFixture(t, nil)
	p := pool.NewWithResults[string]().WithErrors()
	for i := 0; i < 8; i++ {
		p.Go(func() (string, error) {
			order := singleItemOrder("27")
			order.ID = fmt.Sprintf("ord_%d", i)
			doc, err := f.svc.GenerateOrderInvoice(context.Background(), invoicedomain.OrderInvoiceRequest{Order: order, Seller: registeredSeller("27")})
			return doc.Invoice.Number, err
		})
	}
	numbers, err := p.Wait()
	require.NoError(t, err)

	expected := make([]string, 0, 8)
	for i := 1; i <= 8; i++ {
		expected = append(expected, fmt.Sprintf("MRC-%06d", i))
	}
	assert.ElementsMatch(t, expected, numbers)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "invoice-mrc-000045.pdf", FileName(invoicedomain.CanonicalInvoice{Number: "MRC-000045"}))
	assert.Equal(t, "invoice-draft.pdf", FileName(invoicedomain.CanonicalInvoice{}))
}
