package store_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MrJamesThe3rd/numrent/internal/database"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/ledger/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("numrent_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(dsn)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db))
	// Second run must be a no-op.
	require.NoError(t, database.Migrate(ctx, db))

	return db
}

func inTx(t *testing.T, s *store.Store, fn func(tx ledger.Tx)) {
	t.Helper()

	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	defer tx.Rollback()

	fn(tx)

	require.NoError(t, tx.Commit())
}

func TestStore_Postgres(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)
	ctx := context.Background()

	inTx(t, s, func(tx ledger.Tx) {
		require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: 1, Username: "seller", Rating: ledger.DefaultRating}))
		require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: 2, Username: "buyer", Balance: 1000, Rating: ledger.DefaultRating}))
	})

	t.Run("DuplicateAccount", func(t *testing.T) {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		defer tx.Rollback()

		err = tx.CreateAccount(ctx, &ledger.Account{ID: 1, Rating: ledger.DefaultRating})
		assert.ErrorIs(t, err, ledger.ErrInvalidState)
	})

	t.Run("GetAccount", func(t *testing.T) {
		acc, err := s.GetAccount(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), acc.Balance)
		assert.True(t, acc.Rating.Equal(decimal.NewFromInt(5)))

		_, err = s.GetAccount(ctx, 99)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("AdjustBalanceGuard", func(t *testing.T) {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		defer tx.Rollback()

		_, err = tx.AdjustBalance(ctx, 2, -1001)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		_, err = tx.AdjustBalance(ctx, 99, 1)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	var listing ledger.Listing

	var purchase ledger.Transaction

	t.Run("PurchaseFlow", func(t *testing.T) {
		inTx(t, s, func(tx ledger.Tx) {
			listing = ledger.Listing{SellerID: 1, Service: ledger.ServiceTelegram, DurationHours: 4, Price: 300, Status: ledger.ListingActive}
			require.NoError(t, tx.CreateListing(ctx, &listing))
			assert.NotEqual(t, uuid.Nil, listing.ID)
		})

		inTx(t, s, func(tx ledger.Tx) {
			_, err := tx.LockListing(ctx, listing.ID)
			require.NoError(t, err)

			bal, err := tx.AdjustBalance(ctx, 2, -300)
			require.NoError(t, err)
			assert.Equal(t, int64(700), bal)

			require.NoError(t, tx.MarkListingSold(ctx, listing.ID))

			purchase = ledger.Transaction{
				BuyerID: 2, SellerID: 1, ListingID: listing.ID, Amount: 300,
				Status: ledger.TransactionPending, ExpiresAt: time.Now().Add(4 * time.Hour),
			}
			require.NoError(t, tx.CreateTransaction(ctx, &purchase))
		})

		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		defer tx.Rollback()

		assert.ErrorIs(t, tx.MarkListingSold(ctx, listing.ID), ledger.ErrListingUnavailable)
	})

	t.Run("ListTransactions", func(t *testing.T) {
		party := int64(1)
		pending := ledger.TransactionPending

		txs, err := s.ListTransactions(ctx, ledger.TransactionFilter{PartyID: &party, Status: &pending})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, purchase.ID, txs[0].ID)

		later := time.Now().Add(5 * time.Hour)

		expiring, err := s.ListTransactions(ctx, ledger.TransactionFilter{Status: &pending, ExpiresBefore: &later})
		require.NoError(t, err)
		assert.Len(t, expiring, 1)
	})

	t.Run("DisputeAndSettle", func(t *testing.T) {
		var d ledger.Dispute

		inTx(t, s, func(tx ledger.Tx) {
			require.NoError(t, tx.UpdateTransactionStatus(ctx, purchase.ID, ledger.TransactionPending, ledger.TransactionDisputed, nil))

			d = ledger.Dispute{TransactionID: purchase.ID, InitiatorID: 2, Description: "number never arrived", Status: ledger.DisputeOpen}
			require.NoError(t, tx.CreateDispute(ctx, &d))
		})

		inTx(t, s, func(tx ledger.Tx) {
			locked, err := tx.LockDispute(ctx, d.ID)
			require.NoError(t, err)
			assert.Nil(t, locked.Outcome)

			now := time.Now()
			locked.Status = ledger.DisputeResolved
			locked.Outcome = new(ledger.FavorBuyer)
			locked.ResolvedAt = &now
			require.NoError(t, tx.UpdateDispute(ctx, locked, ledger.DisputeOpen))

			require.NoError(t, tx.UpdateTransactionStatus(ctx, purchase.ID, ledger.TransactionDisputed, ledger.TransactionRefunded, &now))

			_, err = tx.AdjustBalance(ctx, 2, 300)
			require.NoError(t, err)
		})

		got, err := s.GetDispute(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.DisputeResolved, got.Status)
		require.NotNil(t, got.Outcome)
		assert.Equal(t, ledger.FavorBuyer, *got.Outcome)

		tr, err := s.GetTransaction(ctx, purchase.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.TransactionRefunded, tr.Status)
		assert.NotNil(t, tr.CompletedAt)

		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		defer tx.Rollback()

		err = tx.UpdateTransactionStatus(ctx, purchase.ID, ledger.TransactionDisputed, ledger.TransactionCompleted, nil)
		assert.ErrorIs(t, err, ledger.ErrInvalidState)
	})

	t.Run("Reviews", func(t *testing.T) {
		inTx(t, s, func(tx ledger.Tx) {
			require.NoError(t, tx.CreateReview(ctx, &ledger.Review{TransactionID: purchase.ID, ReviewerID: 2, ReviewedID: 1, Rating: 4}))
			require.NoError(t, tx.UpdateRating(ctx, 1, 4, 1, ledger.MeanRating(4, 1)))
		})

		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		err = tx.CreateReview(ctx, &ledger.Review{TransactionID: purchase.ID, ReviewerID: 2, ReviewedID: 1, Rating: 1})
		assert.ErrorIs(t, err, ledger.ErrDuplicateReview)
		require.NoError(t, tx.Rollback())

		reviewed := int64(1)
		reviews, err := s.ListReviews(ctx, ledger.ReviewFilter{ReviewedID: &reviewed})
		require.NoError(t, err)
		require.Len(t, reviews, 1)

		acc, err := s.GetAccount(ctx, 1)
		require.NoError(t, err)
		assert.True(t, acc.Rating.Equal(decimal.NewFromInt(4)), "rating %s", acc.Rating)
	})

	t.Run("Deposits", func(t *testing.T) {
		inTx(t, s, func(tx ledger.Tx) {
			require.NoError(t, tx.CreateDeposit(ctx, &ledger.Deposit{InvoiceID: "inv-1", UserID: 2, Amount: 500, PayURL: "https://pay/1", Status: ledger.DepositPending}))
		})

		inTx(t, s, func(tx ledger.Tx) {
			require.NoError(t, tx.MarkDepositPaid(ctx, "inv-1", time.Now()))
		})

		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		defer tx.Rollback()

		assert.ErrorIs(t, tx.MarkDepositPaid(ctx, "inv-1", time.Now()), ledger.ErrInvalidState)

		d, err := s.GetDeposit(ctx, "inv-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.DepositPaid, d.Status)
	})
}

func TestStore_PostgresConcurrentPurchase(t *testing.T) {
	db := newTestDB(t)
	s := store.New(db)
	ctx := context.Background()

	var listing ledger.Listing

	inTx(t, s, func(tx ledger.Tx) {
		require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: 1, Rating: ledger.DefaultRating}))

		for id := int64(2); id <= 6; id++ {
			require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: id, Balance: 1000, Rating: ledger.DefaultRating}))
		}

		listing = ledger.Listing{SellerID: 1, Service: ledger.ServiceWhatsApp, DurationHours: 1, Price: 100, Status: ledger.ListingActive}
		require.NoError(t, tx.CreateListing(ctx, &listing))
	})

	var (
		mu   sync.Mutex
		wins int
		wg   sync.WaitGroup
	)

	for buyer := int64(2); buyer <= 6; buyer++ {
		wg.Go(func() {
			tx, err := s.Begin(ctx)
			if err != nil {
				return
			}

			defer tx.Rollback()

			l, err := tx.LockListing(ctx, listing.ID)
			if err != nil || l.Status != ledger.ListingActive {
				return
			}

			if _, err := tx.AdjustBalance(ctx, buyer, -l.Price); err != nil {
				return
			}

			if err := tx.MarkListingSold(ctx, l.ID); err != nil {
				return
			}

			tr := &ledger.Transaction{
				BuyerID: buyer, SellerID: 1, ListingID: l.ID, Amount: l.Price,
				Status: ledger.TransactionPending, ExpiresAt: time.Now().Add(time.Hour),
			}
			if err := tx.CreateTransaction(ctx, tr); err != nil {
				return
			}

			if tx.Commit() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		})
	}

	wg.Wait()

	assert.Equal(t, 1, wins)

	var total int64
	for id := int64(2); id <= 6; id++ {
		acc, err := s.GetAccount(ctx, id)
		require.NoError(t, err)

		total += acc.Balance
	}

	assert.Equal(t, int64(5*1000-100), total)
}
