// Package account manages custodial balances. Credit and Debit are the only
// entry points the funding layer uses to move money in and out of the ledger.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

type Service struct {
	store  ledger.Store
	logger *slog.Logger
}

func NewService(store ledger.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register creates the account for an external user id. Registering an id that
// already exists returns the existing account unchanged.
func (s *Service) Register(ctx context.Context, id int64, username string) (*ledger.Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ledger.ErrInvalidInput)
	}

	acc := &ledger.Account{
		ID:       id,
		Username: strings.TrimSpace(username),
		Rating:   ledger.DefaultRating,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, ledger.ErrInvalidState) {
			tx.Rollback()
			return s.store.GetAccount(ctx, id)
		}

		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", "user_id", id)

	return acc, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*ledger.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// Credit adds amount to the balance and returns the new balance.
func (s *Service) Credit(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive", ledger.ErrInvalidInput)
	}

	return s.adjust(ctx, id, amount)
}

// Debit removes amount from the balance and returns the new balance. It fails
// with ErrInsufficientFunds rather than letting the balance go negative.
func (s *Service) Debit(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", ledger.ErrInvalidInput)
	}

	return s.adjust(ctx, id, -amount)
}

func (s *Service) adjust(ctx context.Context, id int64, delta int64) (int64, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := tx.AdjustBalance(ctx, id, delta)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.logger.Info("balance adjusted", "user_id", id, "delta", delta, "balance", balance)

	return balance, nil
}
