package dispute_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/numrent/internal/dispute"
	"github.com/MrJamesThe3rd/numrent/internal/escrow"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/ledger/memstore"
	"github.com/MrJamesThe3rd/numrent/internal/notify"
)

const (
	sellerID int64 = 1
	buyerID  int64 = 2
	adminID  int64 = 99
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	store    *memstore.Store
	escrow   *escrow.Service
	disputes *dispute.Service
}

// newFixture sets up a pending purchase: a Telegram/4h
// listing at 10.00 bought by a buyer holding 15.00.
func newFixture(t *testing.T) (*fixture, *ledger.Transaction) {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()
	n := notify.NewLog(discard)

	f := &fixture{store: store, escrow: escrow.NewService(store, n, discard)}
	f.disputes = dispute.NewService(store, f.escrow, n, []int64{adminID}, discard)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: sellerID, Rating: ledger.DefaultRating}))
	require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: buyerID, Balance: 1500, Rating: ledger.DefaultRating}))

	l := &ledger.Listing{SellerID: sellerID, Service: ledger.ServiceTelegram, DurationHours: 4, Price: 1000, Status: ledger.ListingActive}
	require.NoError(t, tx.CreateListing(ctx, l))
	require.NoError(t, tx.Commit())

	tr, err := f.escrow.Purchase(ctx, buyerID, l.ID)
	require.NoError(t, err)

	return f, tr
}

func (f *fixture) balance(t *testing.T, id int64) int64 {
	t.Helper()

	acc, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)

	return acc.Balance
}

func (f *fixture) status(t *testing.T, id uuid.UUID) ledger.TransactionStatus {
	t.Helper()

	tr, err := f.store.GetTransaction(context.Background(), id)
	require.NoError(t, err)

	return tr.Status
}

func TestService_ResolveFavorBuyerRefundsOnce(t *testing.T) {
	ctx := context.Background()
	f, tr := newFixture(t)

	d, err := f.disputes.Open(ctx, tr.ID, buyerID, "  number never received the code  ")
	require.NoError(t, err)
	assert.Equal(t, "number never received the code", d.Description)
	assert.Equal(t, ledger.TransactionDisputed, f.status(t, tr.ID))

	open := ledger.DisputeOpen
	openDisputes, err := f.disputes.List(ctx, ledger.DisputeFilter{Status: &open, TransactionID: &tr.ID})
	require.NoError(t, err)
	assert.Len(t, openDisputes, 1)

	resolved, err := f.disputes.Resolve(ctx, d.ID, ledger.FavorBuyer)
	require.NoError(t, err)
	assert.Equal(t, ledger.DisputeResolved, resolved.Status)
	require.NotNil(t, resolved.Outcome)
	assert.Equal(t, ledger.FavorBuyer, *resolved.Outcome)
	assert.NotNil(t, resolved.ResolvedAt)

	assert.Equal(t, int64(1500), f.balance(t, buyerID))
	assert.Equal(t, ledger.TransactionRefunded, f.status(t, tr.ID))

	_, err = f.disputes.Resolve(ctx, d.ID, ledger.FavorBuyer)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	assert.Equal(t, int64(1500), f.balance(t, buyerID))

	_, err = f.disputes.Resolve(ctx, d.ID, ledger.FavorSeller)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	assert.Equal(t, int64(0), f.balance(t, sellerID))

	stored, err := f.disputes.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DisputeResolved, stored.Status)
}

func TestService_ResolveFavorSellerPaysSeller(t *testing.T) {
	ctx := context.Background()
	f, tr := newFixture(t)

	d, err := f.disputes.Open(ctx, tr.ID, buyerID, "seller says it works")
	require.NoError(t, err)

	_, err = f.disputes.Resolve(ctx, d.ID, ledger.FavorSeller)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), f.balance(t, sellerID))
	assert.Equal(t, int64(500), f.balance(t, buyerID))
	assert.Equal(t, ledger.TransactionCompleted, f.status(t, tr.ID))
}

func TestService_Open(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		initiator   int64
		description string
		prepare     func(t *testing.T, f *fixture, tr *ledger.Transaction)
		wantErr     error
	}{
		{name: "Seller", initiator: sellerID, description: "x", wantErr: ledger.ErrInvalidInput},
		{name: "Stranger", initiator: 7, description: "x", wantErr: ledger.ErrInvalidInput},
		{name: "Blank", initiator: buyerID, description: "   ", wantErr: ledger.ErrInvalidInput},
		{name: "TooLong", initiator: buyerID, description: strings.Repeat("я", dispute.MaxDescriptionLength+1), wantErr: ledger.ErrInvalidInput},
		{name: "MaxLength", initiator: buyerID, description: strings.Repeat("я", dispute.MaxDescriptionLength)},
		{
			name:        "Completed",
			initiator:   buyerID,
			description: "late",
			prepare: func(t *testing.T, f *fixture, tr *ledger.Transaction) {
				_, err := f.escrow.MarkCompleted(ctx, tr.ID)
				require.NoError(t, err)
			},
			wantErr: ledger.ErrInvalidState,
		},
		{
			name:        "AlreadyDisputed",
			initiator:   buyerID,
			description: "again",
			prepare: func(t *testing.T, f *fixture, tr *ledger.Transaction) {
				_, err := f.disputes.Open(ctx, tr.ID, buyerID, "first")
				require.NoError(t, err)
			},
			wantErr: ledger.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, tr := newFixture(t)
			if tt.prepare != nil {
				tt.prepare(t, f, tr)
			}

			before := f.status(t, tr.ID)

			_, err := f.disputes.Open(ctx, tr.ID, tt.initiator, tt.description)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, f.status(t, tr.ID))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, ledger.TransactionDisputed, f.status(t, tr.ID))
		})
	}

	t.Run("UnknownTransaction", func(t *testing.T) {
		f, _ := newFixture(t)

		_, err := f.disputes.Open(ctx, uuid.New(), buyerID, "where")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestService_ConcurrentResolveMovesMoneyOnce(t *testing.T) {
	ctx := context.Background()
	f, tr := newFixture(t)

	d, err := f.disputes.Open(ctx, tr.ID, buyerID, "nothing works")
	require.NoError(t, err)

	var wins, conflicts atomic.Int32

	var g errgroup.Group

	for i := range 10 {
		outcome := ledger.FavorBuyer
		if i%2 == 1 {
			outcome = ledger.FavorSeller
		}

		g.Go(func() error {
			_, err := f.disputes.Resolve(ctx, d.ID, outcome)

			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ledger.ErrInvalidState):
				conflicts.Add(1)
			default:
				return err
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(9), conflicts.Load())
	assert.Equal(t, int64(1500), f.balance(t, buyerID)+f.balance(t, sellerID))
}

func TestService_Close(t *testing.T) {
	ctx := context.Background()
	f, tr := newFixture(t)

	d, err := f.disputes.Open(ctx, tr.ID, buyerID, "changed my mind")
	require.NoError(t, err)

	closed, err := f.disputes.Close(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DisputeClosed, closed.Status)
	assert.Nil(t, closed.Outcome)

	assert.Equal(t, ledger.TransactionDisputed, f.status(t, tr.ID))
	assert.Equal(t, int64(500), f.balance(t, buyerID))
	assert.Equal(t, int64(0), f.balance(t, sellerID))

	_, err = f.disputes.Close(ctx, d.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = f.disputes.Resolve(ctx, d.ID, ledger.FavorBuyer)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = f.escrow.Refund(ctx, tr.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestService_ResolveRejectsUnknownOutcome(t *testing.T) {
	f, tr := newFixture(t)

	d, err := f.disputes.Open(context.Background(), tr.ID, buyerID, "bad")
	require.NoError(t, err)

	_, err = f.disputes.Resolve(context.Background(), d.ID, "split")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestService_ResolveSettleFailureLeavesDisputeOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := ledger.NewMockStore(ctrl)
	tx := ledger.NewMockTx(ctrl)
	settler := dispute.NewMockSettler(ctrl)

	disputeID, txID := uuid.New(), uuid.New()

	store.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockDispute(gomock.Any(), disputeID).Return(&ledger.Dispute{ID: disputeID, TransactionID: txID, Status: ledger.DisputeOpen}, nil)
	settler.EXPECT().Settle(gomock.Any(), tx, txID, ledger.FavorSeller).Return(nil, errors.New("deadlock detected"))
	tx.EXPECT().Rollback().Return(nil)

	svc := dispute.NewService(store, settler, notify.NewLog(discard), nil, discard).
		WithClock(func() time.Time { return time.Unix(0, 0) })

	_, err := svc.Resolve(context.Background(), disputeID, ledger.FavorSeller)
	assert.EqualError(t, err, "deadlock detected")
}

func TestService_OpenNotifiesAdmins(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	notifier := notify.NewMockNotifier(ctrl)

	f, tr := newFixture(t)
	svc := dispute.NewService(f.store, f.escrow, notifier, []int64{adminID, 100}, discard)

	notifier.EXPECT().Notify(gomock.Any(), adminID, gomock.Any()).Return(nil)
	notifier.EXPECT().Notify(gomock.Any(), int64(100), gomock.Any()).Return(nil)
	notifier.EXPECT().Notify(gomock.Any(), sellerID, gomock.Any()).Return(nil)

	_, err := svc.Open(ctx, tr.ID, buyerID, "help")
	require.NoError(t, err)
}
