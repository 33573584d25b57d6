package account_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/numrent/internal/account"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/ledger/memstore"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := account.NewService(memstore.New(), discard)

	acc, err := svc.Register(ctx, 10, " alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	assert.True(t, acc.Rating.Equal(ledger.DefaultRating))

	_, err = svc.Credit(ctx, 10, 700)
	require.NoError(t, err)

	again, err := svc.Register(ctx, 10, "other")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)
	assert.Equal(t, int64(700), again.Balance)

	_, err = svc.Register(ctx, 0, "zero")
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestService_CreditDebit(t *testing.T) {
	ctx := context.Background()
	svc := account.NewService(memstore.New(), discard)

	_, err := svc.Register(ctx, 1, "bob")
	require.NoError(t, err)

	tests := []struct {
		name    string
		op      func() (int64, error)
		want    int64
		wantErr error
	}{
		{name: "Credit", op: func() (int64, error) { return svc.Credit(ctx, 1, 1500) }, want: 1500},
		{name: "Debit", op: func() (int64, error) { return svc.Debit(ctx, 1, 1000) }, want: 500},
		{name: "Overdraw", op: func() (int64, error) { return svc.Debit(ctx, 1, 501) }, wantErr: ledger.ErrInsufficientFunds},
		{name: "ZeroCredit", op: func() (int64, error) { return svc.Credit(ctx, 1, 0) }, wantErr: ledger.ErrInvalidInput},
		{name: "NegativeDebit", op: func() (int64, error) { return svc.Debit(ctx, 1, -5) }, wantErr: ledger.ErrInvalidInput},
		{name: "UnknownAccount", op: func() (int64, error) { return svc.Credit(ctx, 2, 5) }, wantErr: ledger.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	acc, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), acc.Balance)
}

func TestService_CreditCommitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := ledger.NewMockStore(ctrl)
	tx := ledger.NewMockTx(ctrl)

	store.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().AdjustBalance(gomock.Any(), int64(1), int64(100)).Return(int64(100), nil)
	tx.EXPECT().Commit().Return(errors.New("connection reset"))
	tx.EXPECT().Rollback().Return(nil)

	_, err := account.NewService(store, discard).Credit(context.Background(), 1, 100)
	assert.EqualError(t, err, "connection reset")
}
