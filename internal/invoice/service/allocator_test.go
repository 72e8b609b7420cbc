package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/gstinvoice/internal/clock"
	"github.com/smallbiznis/gstinvoice/internal/config"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/invoice/repository"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testIssuedAt = time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC)

func newAllocatorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&invoicedomain.InvoiceSequence{}, &invoicedomain.InvoiceNumberRecord{}))
	return db
}

func newTestAllocator(t *testing.T, db *gorm.DB, repo invoicedomain.Repository) *Allocator {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewAllocator(AllocatorParams{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repo,
		Config: config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
		Clock:  clock.NewFakeClock(testIssuedAt),
		Retry:  &RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	})
}

func TestAllocator_IdempotentPerOrder(t *testing.T) {
	alloc := newTestAllocator(t, newAllocatorDB(t), repository.Provide())
	ctx := context.Background()
	req := invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "order-1", Prefix: "mrc", Source: "order"}

	first, err := alloc.Allocate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "MRC-000001", first.Number)
	assert.Equal(t, int64(1), first.Sequence)
	assert.False(t, first.Existing)

	second, err := alloc.Allocate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Number, second.Number)
	assert.True(t, second.Existing)

	// a different prefix on replay does not reissue
	req.Prefix = "OTHER"
	third, err := alloc.Allocate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "MRC-000001", third.Number)
}

func TestAllocator_SequencePerMerchantAndPrefix(t *testing.T) {
	alloc := newTestAllocator(t, newAllocatorDB(t), repository.Provide())
	ctx := context.Background()

	a1, err := alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1"})
	require.NoError(t, err)
	a2, err := alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o2"})
	require.NoError(t, err)
	b1, err := alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m2", OrderRef: "o1"})
	require.NoError(t, err)
	c1, err := alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o3", Prefix: "MRC"})
	require.NoError(t, err)

	assert.Equal(t, "INV-000001", a1.Number)
	assert.Equal(t, "INV-000002", a2.Number)
	assert.Equal(t, "INV-000001", b1.Number)
	assert.Equal(t, "MRC-000001", c1.Number)
}

func TestAllocator_ConcurrentSameOrder(t *testing.T) {
	alloc := newTestAllocator(t, newAllocatorDB(t), repository.Provide())
	ctx := context.Background()

	p := pool.NewWithResults[string]().WithErrors()
	for i := 0; i < 8; i++ {
		p.Go(func() (string, error) {
			a, err := alloc.AllocateWithRetry(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "order-45", Prefix: "MRC"})
			return a.Number, err
		})
	}
	numbers, err := p.Wait()
	require.NoError(t, err)
	require.Len(t, numbers, 8)
	for _, n := range numbers {
		assert.Equal(t, "MRC-000001", n)
	}
}

func TestAllocator_ConcurrentDistinctOrders(t *testing.T) {
	alloc := newTestAllocator(t, newAllocatorDB(t), repository.Provide())
	ctx := context.Background()

	p := pool.NewWithResults[int64]().WithErrors()
	for i := 0; i < 10; i++ {
		ref := fmt.Sprintf("order-%d", i)
		p.Go(func() (int64, error) {
			a, err := alloc.AllocateWithRetry(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: ref})
			return a.Sequence, err
		})
	}
	seqs, err := p.Wait()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seqs)
}

func TestAllocator_Validation(t *testing.T) {
	alloc := newTestAllocator(t, newAllocatorDB(t), repository.Provide())
	ctx := context.Background()

	_, err := alloc.Allocate(ctx, invoicedomain.AllocateRequest{OrderRef: "o1"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidMerchant)

	_, err = alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "  "})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidOrderRef)

	_, err = alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1", Prefix: "INV-2024"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPrefix)

	_, err = alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1", Prefix: "TOOLONGPX"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPrefix)
}

func TestNormalizePrefix(t *testing.T) {
	p, err := NormalizePrefix(" mrc ", "INV")
	require.NoError(t, err)
	assert.Equal(t, "MRC", p)

	p, err = NormalizePrefix("", "inv")
	require.NoError(t, err)
	assert.Equal(t, "INV", p)

	_, err = NormalizePrefix("", "")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPrefix)
}

func TestAllocator_Lookup(t *testing.T) {
	alloc := newTestAllocator(t, newAllocatorDB(t), repository.Provide())
	ctx := context.Background()

	_, err := alloc.Lookup(ctx, "m1", "missing")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotAllocated)

	issued, err := alloc.Allocate(ctx, invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1"})
	require.NoError(t, err)

	found, err := alloc.Lookup(ctx, "m1", "o1")
	require.NoError(t, err)
	assert.Equal(t, issued.Number, found.Number)
	assert.True(t, found.Existing)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) FindByOrder(ctx context.Context, db *gorm.DB, merchantID, orderRef string) (*invoicedomain.InvoiceNumberRecord, error) {
	args := m.Called(ctx, db, merchantID, orderRef)
	rec, _ := args.Get(0).(*invoicedomain.InvoiceNumberRecord)
	return rec, args.Error(1)
}

func (m *mockRepository) NextSequence(ctx context.Context, db *gorm.DB, merchantID, prefix string, now time.Time) (int64, error) {
	args := m.Called(ctx, db, merchantID, prefix, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) InsertRecord(ctx context.Context, db *gorm.DB, rec invoicedomain.InvoiceNumberRecord) (bool, error) {
	args := m.Called(ctx, db, rec)
	return args.Bool(0), args.Error(1)
}

func TestAllocator_LostRaceIsConflict(t *testing.T) {
	repo := &mockRepository{}
	repo.On("FindByOrder", mock.Anything, mock.Anything, "m1", "o1").Return(nil, nil)
	repo.On("NextSequence", mock.Anything, mock.Anything, "m1", "INV", mock.Anything).Return(int64(7), nil)
	repo.On("InsertRecord", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	alloc := newTestAllocator(t, newAllocatorDB(t), repo)
	_, err := alloc.Allocate(context.Background(), invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1"})
	assert.ErrorIs(t, err, invoicedomain.ErrAllocationConflict)
	repo.AssertExpectations(t)
}

func TestAllocator_RetryReturnsWinnersNumber(t *testing.T) {
	winner := &invoicedomain.InvoiceNumberRecord{
		ID: 99, MerchantID: "m1", OrderRef: "o1", Prefix: "INV", Sequence: 7, Number: "INV-000007", IssuedAt: testIssuedAt,
	}
	repo := &mockRepository{}
	repo.On("FindByOrder", mock.Anything, mock.Anything, "m1", "o1").Return(nil, nil).Once()
	repo.On("NextSequence", mock.Anything, mock.Anything, "m1", "INV", mock.Anything).Return(int64(8), nil).Once()
	repo.On("InsertRecord", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
	repo.On("FindByOrder", mock.Anything, mock.Anything, "m1", "o1").Return(winner, nil).Once()

	alloc := newTestAllocator(t, newAllocatorDB(t), repo)
	got, err := alloc.AllocateWithRetry(context.Background(), invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1"})
	require.NoError(t, err)
	assert.Equal(t, "INV-000007", got.Number)
	assert.True(t, got.Existing)
	repo.AssertExpectations(t)
}

func TestAllocator_RetryStopsOnPermanentError(t *testing.T) {
	boom := fmt.Errorf("connection refused")
	repo := &mockRepository{}
	repo.On("FindByOrder", mock.Anything, mock.Anything, "m1", "o1").Return(nil, boom).Once()

	alloc := newTestAllocator(t, newAllocatorDB(t), repo)
	_, err := alloc.AllocateWithRetry(context.Background(), invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	repo.AssertExpectations(t)
}

func TestAllocator_RetryGivesUp(t *testing.T) {
	repo := &mockRepository{}
	repo.On("FindByOrder", mock.Anything, mock.Anything, "m1", "o1").Return(nil, nil)
	repo.On("NextSequence", mock.Anything, mock.Anything, "m1", "INV", mock.Anything).Return(int64(1), nil)
	repo.On("InsertRecord", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	alloc := newTestAllocator(t, newAllocatorDB(t), repo)
	_, err := alloc.AllocateWithRetry(context.Background(), invoicedomain.AllocateRequest{MerchantID: "m1", OrderRef: "o1"})
	assert.ErrorIs(t, err, invoicedomain.ErrAllocationConflict)
	repo.AssertNumberOfCalls(t, "InsertRecord", 4)
}
