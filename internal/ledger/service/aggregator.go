package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gstinvoice/internal/config"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/gstinvoice/internal/ledger/domain"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	taxservice "github.com/smallbiznis/gstinvoice/internal/tax/service"
	"github.com/smallbiznis/gstinvoice/pkg/money"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

var tracer = otel.Tracer("ledger.aggregator")

type Params struct {
	fx.In

	DB     *gorm.DB
	Repo   ledgerdomain.Repository
	Log    *zap.Logger
	Config *config.InvoicingConfigHolder
}

type Aggregator struct {
	db   *gorm.DB
	repo ledgerdomain.Repository
	log  *zap.Logger
	cfg  *config.InvoicingConfigHolder
}

func NewAggregator(p Params) ledgerdomain.Aggregator {
	return &Aggregator{
		db:   p.DB,
		repo: p.Repo,
		log:  p.Log.Named("ledger.aggregator"),
		cfg:  p.Config,
	}
}

// Options tune presentation details of an aggregation.
type Options struct {
	// Classification is the SAC printed on every line.
	Classification string
	// Location decides which calendar day an order-less entry belongs to.
	Location *time.Location
}

func (a *Aggregator) Aggregate(ctx context.Context, req ledgerdomain.AggregateRequest) (invoicedomain.BillingSummary, error) {
	ctx, span := tracer.Start(ctx, "ledger.Aggregate")
	defer span.End()
	span.SetAttributes(attribute.String("merchant_id", req.MerchantID))

	if err := validateRequest(req); err != nil {
		return invoicedomain.BillingSummary{}, err
	}

	cfg := a.cfg.Get()
	rate := cfg.GSTRate()
	if req.GSTRate != nil {
		rate = *req.GSTRate
	}

	entries, err := a.repo.ListPlatformFees(ctx, a.db, strings.TrimSpace(req.MerchantID), req.From, req.To)
	if err != nil {
		return invoicedomain.BillingSummary{}, fmt.Errorf("list platform fees: %w", err)
	}

	jurisdiction := taxservice.ResolveCustomer(req.SupplierRegistered, req.SupplierState, req.RecipientState)
	summary, err := AggregateEntries(req, entries, jurisdiction, rate, Options{
		Classification: cfg.PlatformFeeSAC,
		Location:       cfg.Location(),
	})
	if err != nil {
		return invoicedomain.BillingSummary{}, err
	}

	a.log.Debug("aggregated platform fees",
		zap.String("merchant_id", summary.MerchantID),
		zap.Int("entries", summary.EntryCount),
		zap.Int("lines", len(summary.LineItems)),
		zap.String("regime", string(summary.Regime)),
	)
	span.SetAttributes(attribute.Int("entries", summary.EntryCount))
	return summary, nil
}

type feeGroup struct {
	orderID   *string
	reference string
	day       string
	entries   []ledgerdomain.LedgerEntry
}

// AggregateEntries groups billable entries of req's period by order, or by
// calendar day when the entry has no order, and taxes each group under one
// jurisdiction. Entries outside the period or not billable are ignored, so
// the result does not depend on how the caller filtered them.
func AggregateEntries(
	req ledgerdomain.AggregateRequest,
	entries []ledgerdomain.LedgerEntry,
	jurisdiction taxdomain.Jurisdiction,
	rate decimal.Decimal,
	opts Options,
) (invoicedomain.BillingSummary, error) {
	if err := validateRequest(req); err != nil {
		return invoicedomain.BillingSummary{}, err
	}
	if rate.IsNegative() {
		return invoicedomain.BillingSummary{}, ledgerdomain.ErrInvalidRate
	}
	if jurisdiction.Regime == taxdomain.RegimeNone {
		rate = decimal.Zero
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	merchantID := strings.TrimSpace(req.MerchantID)
	selected := lo.Filter(entries, func(e ledgerdomain.LedgerEntry, _ int) bool {
		return e.MerchantID == merchantID &&
			e.Billable() &&
			!e.OccurredAt.Before(req.From) &&
			!e.OccurredAt.After(req.To)
	})
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].OccurredAt.Equal(selected[j].OccurredAt) {
			return selected[i].ID < selected[j].ID
		}
		return selected[i].OccurredAt.Before(selected[j].OccurredAt)
	})

	summary := invoicedomain.BillingSummary{
		MerchantID:   merchantID,
		From:         req.From,
		To:           req.To,
		Regime:       jurisdiction.Regime,
		Jurisdiction: jurisdiction,
		GSTRate:      rate,
		LineItems:    []invoicedomain.LineItem{},
		Totals:       invoicedomain.ZeroTotals(),
		EntryCount:   len(selected),
	}

	for _, group := range groupEntries(selected, loc) {
		minor := lo.SumBy(group.entries, func(e ledgerdomain.LedgerEntry) int64 {
			return e.AmountMinor
		})
		taxable := money.Round2(money.FromMinor(minor))
		split, err := taxservice.SplitSigned(jurisdiction.Regime, taxable, rate)
		if err != nil {
			return invoicedomain.BillingSummary{}, err
		}

		line := invoicedomain.NewLineItem(taxable, split)
		line.CorrelationID = group.orderID
		line.OrderRef = group.reference
		line.Description = describe(group)
		line.Classification = opts.Classification
		line.Quantity = 1
		line.UnitPrice = taxable
		line.GSTRate = rate
		line.Regime = jurisdiction.Regime

		summary.LineItems = append(summary.LineItems, line)
		summary.Totals = summary.Totals.Add(line)
	}

	return summary, nil
}

// groupEntries keeps groups in order of their first entry.
func groupEntries(entries []ledgerdomain.LedgerEntry, loc *time.Location) []*feeGroup {
	index := make(map[string]*feeGroup)
	groups := make([]*feeGroup, 0)
	for _, entry := range entries {
		key, group := groupKey(entry, loc)
		existing, ok := index[key]
		if !ok {
			index[key] = group
			groups = append(groups, group)
			existing = group
		}
		existing.entries = append(existing.entries, entry)
	}
	return groups
}

func groupKey(entry ledgerdomain.LedgerEntry, loc *time.Location) (string, *feeGroup) {
	if entry.OrderID != nil && strings.TrimSpace(*entry.OrderID) != "" {
		orderID := strings.TrimSpace(*entry.OrderID)
		reference := orderID
		if entry.OrderNumber != nil && strings.TrimSpace(*entry.OrderNumber) != "" {
			reference = strings.TrimSpace(*entry.OrderNumber)
		}
		key := "order:" + orderID
		return key, &feeGroup{orderID: &orderID, reference: reference}
	}
	day := entry.OccurredAt.In(loc).Format(dayLayout)
	key := "day:" + day
	return key, &feeGroup{day: day}
}

func describe(group *feeGroup) string {
	if group.orderID != nil {
		return "Platform fee for Order #" + group.reference
	}
	return "Platform fee - " + group.day
}

func validateRequest(req ledgerdomain.AggregateRequest) error {
	if strings.TrimSpace(req.MerchantID) == "" {
		return ledgerdomain.ErrInvalidMerchant
	}
	if req.From.IsZero() || req.To.IsZero() || req.From.After(req.To) {
		return ledgerdomain.ErrInvalidPeriod
	}
	if req.GSTRate != nil && req.GSTRate.IsNegative() {
		return ledgerdomain.ErrInvalidRate
	}
	return nil
}
