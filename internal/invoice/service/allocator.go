package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v4"
	"github.com/smallbiznis/gstinvoice/internal/clock"
	"github.com/smallbiznis/gstinvoice/internal/config"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/gstinvoice/internal/invoice/format"
	obsmetrics "github.com/smallbiznis/gstinvoice/internal/observability/metrics"
	"github.com/smallbiznis/gstinvoice/pkg/db"
	"github.com/smallbiznis/gstinvoice/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	prefixRe = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)
	tracer   = otel.Tracer("invoice.service")
)

// RetryPolicy bounds AllocateWithRetry.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

type AllocatorParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    invoicedomain.Repository
	Config  *config.InvoicingConfigHolder
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
	Retry   *RetryPolicy        `optional:"true"`
}

// Allocator issues invoice numbers. The database is the only source of
// truth; no counter is kept in process.
type Allocator struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    invoicedomain.Repository
	cfg     *config.InvoicingConfigHolder
	clock   clock.Clock
	metrics *obsmetrics.Metrics
	retry   RetryPolicy
}

func NewAllocator(p AllocatorParams) *Allocator {
	retry := DefaultRetryPolicy()
	if p.Retry != nil {
		retry = *p.Retry
	}
	return &Allocator{
		db:      p.DB,
		log:     p.Log.Named("invoice.allocator"),
		genID:   p.GenID,
		repo:    p.Repo,
		cfg:     p.Config,
		clock:   p.Clock,
		metrics: p.Metrics,
		retry:   retry,
	}
}

// Allocate returns the number of the order, issuing the next one for the
// prefix when the order has none yet. Check, increment and insert share one
// transaction; losing a race to a concurrent allocator rolls everything
// back and yields ErrAllocationConflict.
func (a *Allocator) Allocate(ctx context.Context, req invoicedomain.AllocateRequest) (invoicedomain.Allocation, error) {
	ctx, span := tracer.Start(ctx, "invoice.Allocate")
	defer span.End()

	merchantID := strings.TrimSpace(req.MerchantID)
	if merchantID == "" {
		return invoicedomain.Allocation{}, invoicedomain.ErrInvalidMerchant
	}
	orderRef := strings.TrimSpace(req.OrderRef)
	if orderRef == "" {
		return invoicedomain.Allocation{}, invoicedomain.ErrInvalidOrderRef
	}
	cfg := a.cfg.Get()
	prefix, err := NormalizePrefix(req.Prefix, cfg.DefaultPrefix)
	if err != nil {
		return invoicedomain.Allocation{}, err
	}
	span.SetAttributes(attribute.String("prefix", prefix))

	var alloc invoicedomain.Allocation
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := a.repo.FindByOrder(ctx, tx, merchantID, orderRef)
		if err != nil {
			return err
		}
		if existing != nil {
			alloc = invoicedomain.AllocationFromRecord(*existing, true)
			return nil
		}

		now := a.clock.Now().UTC()
		seq, err := a.repo.NextSequence(ctx, tx, merchantID, prefix, now)
		if err != nil {
			return err
		}
		if seq <= 0 {
			return invoicedomain.ErrInvalidSequence
		}

		number, err := invoiceformat.FormatInvoiceNumber(cfg.NumberTemplate, now.In(cfg.Location()), prefix, seq)
		if err != nil {
			return err
		}

		rec := invoicedomain.InvoiceNumberRecord{
			ID:         a.genID.Generate(),
			MerchantID: merchantID,
			OrderRef:   orderRef,
			Prefix:     prefix,
			Sequence:   seq,
			Number:     number,
			IssuedAt:   now,
			Metadata:   allocationMetadata(ctx, req.Source),
			CreatedAt:  now,
		}
		inserted, err := a.repo.InsertRecord(ctx, tx, rec)
		if err != nil {
			return err
		}
		if !inserted {
			return invoicedomain.ErrAllocationConflict
		}
		alloc = invoicedomain.AllocationFromRecord(rec, false)
		return nil
	})
	if err != nil {
		if !errors.Is(err, invoicedomain.ErrAllocationConflict) && db.IsRetryableErr(err) {
			err = fmt.Errorf("%w: %s", invoicedomain.ErrAllocationConflict, err.Error())
		}
		if errors.Is(err, invoicedomain.ErrAllocationConflict) {
			a.metrics.RecordAllocationConflict(ctx, req.Source)
		}
		span.RecordError(err)
		return invoicedomain.Allocation{}, err
	}

	a.metrics.RecordAllocation(ctx, req.Source, alloc.Existing)
	if !alloc.Existing {
		a.log.Info("invoice number allocated",
			zap.String("merchant_id", merchantID),
			zap.String("order_ref", orderRef),
			zap.String("number", alloc.Number),
			zap.Int64("sequence", alloc.Sequence),
		)
	}
	return alloc, nil
}

// AllocateWithRetry retries allocation conflicts with exponential backoff.
// Any other error is returned at once.
func (a *Allocator) AllocateWithRetry(ctx context.Context, req invoicedomain.AllocateRequest) (invoicedomain.Allocation, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = a.retry.InitialInterval
	expo.MaxInterval = a.retry.MaxInterval
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, a.retry.MaxRetries), ctx)

	attempt := 0
	return backoff.RetryWithData(func() (invoicedomain.Allocation, error) {
		attempt++
		alloc, err := a.Allocate(ctx, req)
		if err == nil {
			return alloc, nil
		}
		if !errors.Is(err, invoicedomain.ErrAllocationConflict) {
			return invoicedomain.Allocation{}, backoff.Permanent(err)
		}
		a.log.Debug("allocation conflict, retrying",
			zap.String("merchant_id", req.MerchantID),
			zap.String("order_ref", req.OrderRef),
			zap.Int("attempt", attempt),
		)
		return invoicedomain.Allocation{}, err
	}, policy)
}

// Lookup returns the number already issued for an order without allocating.
func (a *Allocator) Lookup(ctx context.Context, merchantID, orderRef string) (invoicedomain.Allocation, error) {
	merchantID = strings.TrimSpace(merchantID)
	orderRef = strings.TrimSpace(orderRef)
	if merchantID == "" {
		return invoicedomain.Allocation{}, invoicedomain.ErrInvalidMerchant
	}
	if orderRef == "" {
		return invoicedomain.Allocation{}, invoicedomain.ErrInvalidOrderRef
	}

	rec, err := a.repo.FindByOrder(ctx, a.db, merchantID, orderRef)
	if err != nil {
		return invoicedomain.Allocation{}, err
	}
	if rec == nil {
		return invoicedomain.Allocation{}, invoicedomain.ErrInvoiceNotAllocated
	}
	return invoicedomain.AllocationFromRecord(*rec, true), nil
}

// NormalizePrefix upper-cases the requested prefix, falling back to def.
func NormalizePrefix(requested, def string) (string, error) {
	prefix := strings.ToUpper(strings.TrimSpace(requested))
	if prefix == "" {
		prefix = strings.ToUpper(strings.TrimSpace(def))
	}
	if !prefixRe.MatchString(prefix) {
		return "", fmt.Errorf("%w: %q", invoicedomain.ErrInvalidPrefix, prefix)
	}
	return prefix, nil
}

func allocationMetadata(ctx context.Context, source string) datatypes.JSONMap {
	meta := datatypes.JSONMap{}
	if source != "" {
		meta["source"] = source
	}
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		meta["correlation_id"] = cid
	}
	return meta
}

var _ invoicedomain.Allocator = (*Allocator)(nil)
