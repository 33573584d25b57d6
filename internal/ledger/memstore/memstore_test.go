package memstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/ledger/memstore"
)

func seedAccount(t *testing.T, s *memstore.Store, id, balance int64) {
	t.Helper()

	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: id, Balance: balance, Rating: ledger.DefaultRating}))
	require.NoError(t, tx.Commit())
}

func TestStore_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedAccount(t, s, 1, 1000)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	bal, err := tx.AdjustBalance(ctx, 1, -400)
	require.NoError(t, err)
	assert.Equal(t, int64(600), bal)

	l := &ledger.Listing{SellerID: 1, Service: ledger.ServiceTelegram, DurationHours: 4, Price: 100, Status: ledger.ListingActive}
	require.NoError(t, tx.CreateListing(ctx, l))
	require.NoError(t, tx.Rollback())

	acc, err := s.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acc.Balance)

	_, err = s.GetListing(ctx, l.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_CommitThenRollbackIsNoop(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedAccount(t, s, 1, 0)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.AdjustBalance(ctx, 1, 250)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback())

	assert.Error(t, tx.Commit())

	acc, err := s.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(250), acc.Balance)
}

func TestStore_AdjustBalanceGuard(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedAccount(t, s, 1, 100)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	_, err = tx.AdjustBalance(ctx, 1, -101)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = tx.AdjustBalance(ctx, 2, 5)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedAccount(t, s, 1, 0)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	err = tx.CreateAccount(ctx, &ledger.Account{ID: 1})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	listingID := uuid.New()
	first := &ledger.Transaction{BuyerID: 2, SellerID: 1, ListingID: listingID, Amount: 10, Status: ledger.TransactionPending}
	require.NoError(t, tx.CreateTransaction(ctx, first))

	err = tx.CreateTransaction(ctx, &ledger.Transaction{BuyerID: 3, SellerID: 1, ListingID: listingID, Amount: 10})
	assert.ErrorIs(t, err, ledger.ErrListingUnavailable)

	require.NoError(t, tx.CreateDispute(ctx, &ledger.Dispute{TransactionID: first.ID, InitiatorID: 2, Status: ledger.DisputeOpen}))
	err = tx.CreateDispute(ctx, &ledger.Dispute{TransactionID: first.ID, InitiatorID: 2, Status: ledger.DisputeOpen})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	require.NoError(t, tx.CreateReview(ctx, &ledger.Review{TransactionID: first.ID, ReviewerID: 2, ReviewedID: 1, Rating: 5}))
	err = tx.CreateReview(ctx, &ledger.Review{TransactionID: first.ID, ReviewerID: 2, ReviewedID: 1, Rating: 4})
	assert.ErrorIs(t, err, ledger.ErrDuplicateReview)
}

func TestStore_UpdateTransactionStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	tr := &ledger.Transaction{BuyerID: 2, SellerID: 1, ListingID: uuid.New(), Amount: 10, Status: ledger.TransactionPending}
	require.NoError(t, tx.CreateTransaction(ctx, tr))

	now := time.Now()
	require.NoError(t, tx.UpdateTransactionStatus(ctx, tr.ID, ledger.TransactionPending, ledger.TransactionCompleted, &now))

	err = tx.UpdateTransactionStatus(ctx, tr.ID, ledger.TransactionPending, ledger.TransactionRefunded, nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	got, err := tx.LockTransaction(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TransactionCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.UpdatedAt)
}

func TestStore_ListListings(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	s := memstore.New().WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	prices := []int64{300, 100, 200}
	for _, p := range prices {
		require.NoError(t, tx.CreateListing(ctx, &ledger.Listing{
			SellerID: 1, Service: ledger.ServiceTelegram, DurationHours: 1, Price: p, Status: ledger.ListingActive,
		}))
	}

	require.NoError(t, tx.CreateListing(ctx, &ledger.Listing{
		SellerID: 2, Service: ledger.ServiceUber, DurationHours: 1, Price: 50, Status: ledger.ListingSold,
	}))
	require.NoError(t, tx.Commit())

	active := ledger.ListingActive
	telegram := ledger.ServiceTelegram

	newest, err := s.ListListings(ctx, ledger.ListingFilter{Status: &active})
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, int64(200), newest[0].Price)

	asc, err := s.ListListings(ctx, ledger.ListingFilter{Status: &active, Service: &telegram, Order: ledger.OrderPriceAsc})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, []int64{100, 200, 300}, []int64{asc[0].Price, asc[1].Price, asc[2].Price})

	paged, err := s.ListListings(ctx, ledger.ListingFilter{Status: &active, Order: ledger.OrderPriceDesc, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, int64(200), paged[0].Price)
	assert.Equal(t, int64(100), paged[1].Price)

	empty, err := s.ListListings(ctx, ledger.ListingFilter{Status: &active, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedAccount(t, s, 1, 500)

	acc, err := s.GetAccount(ctx, 1)
	require.NoError(t, err)

	acc.Balance = 0

	again, err := s.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), again.Balance)
}

func TestStore_UnitsAreSerialised(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedAccount(t, s, 1, 0)

	var wg sync.WaitGroup

	for range 50 {
		wg.Go(func() {
			tx, err := s.Begin(ctx)
			if err != nil {
				return
			}

			defer tx.Rollback()

			if _, err := tx.LockAccount(ctx, 1); err != nil {
				return
			}

			if _, err := tx.AdjustBalance(ctx, 1, 1); err != nil {
				return
			}

			_ = tx.Commit()
		})
	}

	wg.Wait()

	acc, err := s.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), acc.Balance)
}

func TestStore_MarkDepositPaidOnce(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	require.NoError(t, tx.CreateDeposit(ctx, &ledger.Deposit{InvoiceID: "inv-1", UserID: 1, Amount: 500, Status: ledger.DepositPending}))

	err = tx.CreateDeposit(ctx, &ledger.Deposit{InvoiceID: "inv-1", UserID: 1, Amount: 500})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	require.NoError(t, tx.MarkDepositPaid(ctx, "inv-1", time.Now()))

	err = tx.MarkDepositPaid(ctx, "inv-1", time.Now())
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	err = tx.MarkDepositPaid(ctx, "inv-2", time.Now())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_BeginHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memstore.New().Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
