package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const selectAccountColumns = `id, username, balance, rating, rating_sum, rating_count, created_at`

func scanAccount(s scanner) (*ledger.Account, error) {
	var a ledger.Account

	if err := s.Scan(&a.ID, &a.Username, &a.Balance, &a.Rating, &a.RatingSum, &a.RatingCount, &a.CreatedAt); err != nil {
		return nil, err
	}

	return &a, nil
}

func getAccount(ctx context.Context, q querier, id int64, lock bool) (*ledger.Account, error) {
	query := forUpdate(`SELECT `+selectAccountColumns+` FROM accounts WHERE id = $1`, lock)

	a, err := scanAccount(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "account", id)
	}

	return a, nil
}

func (u *unit) CreateAccount(ctx context.Context, a *ledger.Account) error {
	query := `
		INSERT INTO accounts (id, username, balance, rating, rating_sum, rating_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		a.ID,
		a.Username,
		a.Balance,
		a.Rating,
		a.RatingSum,
		a.RatingCount,
	).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %d is already registered", ledger.ErrInvalidState, a.ID)
		}

		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (u *unit) LockAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	return getAccount(ctx, u.tx, id, true)
}

func (u *unit) AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance
	`

	var balance int64

	err := u.tx.QueryRowContext(ctx, query, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("adjusting balance: %w", err)
	}

	if _, err := getAccount(ctx, u.tx, id, false); err != nil {
		return 0, err
	}

	return 0, ledger.ErrInsufficientFunds
}

func (u *unit) UpdateRating(ctx context.Context, id int64, sum, count int64, rating decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET rating = $2, rating_sum = $3, rating_count = $4
		WHERE id = $1
	`

	res, err := u.tx.ExecContext(ctx, query, id, rating, sum, count)
	if err != nil {
		return fmt.Errorf("updating rating: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: account %d", ledger.ErrNotFound, id)
	}

	return nil
}
