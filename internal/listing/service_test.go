package listing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/ledger/memstore"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newService(t *testing.T) (*listing.Service, *memstore.Store) {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateAccount(ctx, &ledger.Account{ID: 1, Rating: ledger.DefaultRating}))
	require.NoError(t, tx.Commit())

	return listing.NewService(store, discard), store
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name     string
		sellerID int64
		params   listing.CreateParams
		wantErr  error
	}{
		{
			name:     "Success",
			sellerID: 1,
			params:   listing.CreateParams{Service: ledger.ServiceTelegram, DurationHours: 4, Price: 1000},
		},
		{
			name:     "UnknownService",
			sellerID: 1,
			params:   listing.CreateParams{Service: "Signal", DurationHours: 4, Price: 1000},
			wantErr:  ledger.ErrInvalidInput,
		},
		{
			name:     "BadDuration",
			sellerID: 1,
			params:   listing.CreateParams{Service: ledger.ServiceTelegram, DurationHours: 3, Price: 1000},
			wantErr:  ledger.ErrInvalidInput,
		},
		{
			name:     "ZeroPrice",
			sellerID: 1,
			params:   listing.CreateParams{Service: ledger.ServiceTelegram, DurationHours: 4},
			wantErr:  ledger.ErrInvalidInput,
		},
		{
			name:     "UnknownSeller",
			sellerID: 2,
			params:   listing.CreateParams{Service: ledger.ServiceTelegram, DurationHours: 4, Price: 1000},
			wantErr:  ledger.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)

			got, err := svc.Create(context.Background(), tt.sellerID, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, ledger.ListingActive, got.Status)
			assert.Equal(t, int64(1000), got.Price)
			assert.Equal(t, 4, got.DurationHours)
		})
	}
}

func TestService_CreateBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	_, err := svc.CreateBatch(ctx, 1, []listing.CreateParams{
		{Service: ledger.ServiceTelegram, DurationHours: 1, Price: 100},
		{Service: ledger.ServiceUber, DurationHours: 5, Price: 100},
	})
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
	assert.Contains(t, err.Error(), "row 2")

	all, err := store.ListListings(ctx, ledger.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	created, err := svc.CreateBatch(ctx, 1, []listing.CreateParams{
		{Service: ledger.ServiceTelegram, DurationHours: 1, Price: 100},
		{Service: ledger.ServiceUber, DurationHours: 24, Price: 900},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	_, err = svc.CreateBatch(ctx, 1, nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestService_FindActive(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	svc.WithPageSize(2)

	prices := []int64{500, 100, 400, 200, 300}
	for _, p := range prices {
		_, err := svc.Create(ctx, 1, listing.CreateParams{Service: ledger.ServiceTelegram, DurationHours: 1, Price: p})
		require.NoError(t, err)
	}

	whatsapp, err := svc.Create(ctx, 1, listing.CreateParams{Service: ledger.ServiceWhatsApp, DurationHours: 1, Price: 50})
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.MarkListingSold(ctx, whatsapp.ID))
	require.NoError(t, tx.Commit())

	seq := svc.FindActive(ctx, listing.Filter{}, ledger.OrderPriceAsc)

	collect := func() []int64 {
		var out []int64

		for l, err := range seq {
			require.NoError(t, err)

			out = append(out, l.Price)
		}

		return out
	}

	assert.Equal(t, []int64{100, 200, 300, 400, 500}, collect())
	assert.Equal(t, []int64{100, 200, 300, 400, 500}, collect(), "sequence must be restartable")

	var first []int64

	for l, err := range svc.FindActive(ctx, listing.Filter{}, ledger.OrderPriceDesc) {
		require.NoError(t, err)

		first = append(first, l.Price)
		if len(first) == 3 {
			break
		}
	}

	assert.Equal(t, []int64{500, 400, 300}, first)

	onlyWhatsApp := ledger.ServiceWhatsApp

	var none int
	for range svc.FindActive(ctx, listing.Filter{Service: &onlyWhatsApp}, "") {
		none++
	}

	assert.Zero(t, none)
}

func TestService_FindActiveErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownOrder", func(t *testing.T) {
		svc, _ := newService(t)

		for _, err := range svc.FindActive(ctx, listing.Filter{}, "cheapest") {
			assert.ErrorIs(t, err, ledger.ErrInvalidInput)
		}
	})

	t.Run("StoreFailure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := ledger.NewMockStore(ctrl)
		store.EXPECT().ListListings(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

		var seen int

		for l, err := range listing.NewService(store, discard).FindActive(ctx, listing.Filter{}, ledger.OrderNewest) {
			assert.Nil(t, l)
			assert.EqualError(t, err, "db down")

			seen++
		}

		assert.Equal(t, 1, seen)
	})
}
