package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

type unit struct {
	tx *sql.Tx
}

func (u *unit) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (u *unit) Rollback() error {
	if err := u.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rolling back transaction: %w", err)
	}

	return nil
}

// scanTransaction reads a transaction row.
// Expected column order: id, buyer_id, seller_id, listing_id, amount, status, created_at, expires_at, completed_at, updated_at
func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var t ledger.Transaction

	var status string

	if err := s.Scan(
		&t.ID, &t.BuyerID, &t.SellerID, &t.ListingID, &t.Amount, &status,
		&t.CreatedAt, &t.ExpiresAt, &t.CompletedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Status = ledger.TransactionStatus(status)

	return &t, nil
}

const selectTransactionColumns = `
	id, buyer_id, seller_id, listing_id, amount, status,
	created_at, expires_at, completed_at, updated_at
`

func getTransaction(ctx context.Context, q querier, id uuid.UUID, lock bool) (*ledger.Transaction, error) {
	query := forUpdate(`SELECT `+selectTransactionColumns+` FROM transactions WHERE id = $1`, lock)

	t, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}

	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	var w where

	if filter.BuyerID != nil {
		w.add("buyer_id = $%d", *filter.BuyerID)
	}

	if filter.SellerID != nil {
		w.add("seller_id = $%d", *filter.SellerID)
	}

	if filter.PartyID != nil {
		w.add("(buyer_id = $%[1]d OR seller_id = $%[1]d)", *filter.PartyID)
	}

	if filter.Status != nil {
		w.add("status = $%d", *filter.Status)
	}

	if filter.ExpiresBefore != nil {
		w.add("expires_at <= $%d", *filter.ExpiresBefore)
	}

	if filter.CompletedAfter != nil {
		w.add("completed_at >= $%d", *filter.CompletedAfter)
	}

	query := `SELECT ` + selectTransactionColumns + ` FROM transactions` + w.String() + " ORDER BY created_at DESC"
	query += w.limit(filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return collect(rows, scanTransaction)
}

func (u *unit) CreateTransaction(ctx context.Context, t *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (buyer_id, seller_id, listing_id, amount, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		RETURNING id, created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		t.BuyerID,
		t.SellerID,
		t.ListingID,
		t.Amount,
		t.Status,
		t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrListingUnavailable
		}

		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (u *unit) LockTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return getTransaction(ctx, u.tx, id, true)
}

func (u *unit) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to ledger.TransactionStatus, completedAt *time.Time) error {
	query := `
		UPDATE transactions
		SET status = $3, completed_at = COALESCE($4, completed_at), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	res, err := u.tx.ExecContext(ctx, query, id, from, to, completedAt)
	if err != nil {
		return fmt.Errorf("updating transaction status: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	current, err := getTransaction(ctx, u.tx, id, false)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: transaction %s is %s", ledger.ErrInvalidState, id, current.Status)
}
