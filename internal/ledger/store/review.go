package store

import (
	"context"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const selectReviewColumns = `id, transaction_id, reviewer_id, reviewed_id, rating, comment, created_at`

func scanReview(s scanner) (*ledger.Review, error) {
	var r ledger.Review

	if err := s.Scan(&r.ID, &r.TransactionID, &r.ReviewerID, &r.ReviewedID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

func (s *Store) ListReviews(ctx context.Context, filter ledger.ReviewFilter) ([]*ledger.Review, error) {
	var w where

	if filter.ReviewedID != nil {
		w.add("reviewed_id = $%d", *filter.ReviewedID)
	}

	if filter.ReviewerID != nil {
		w.add("reviewer_id = $%d", *filter.ReviewerID)
	}

	if filter.TransactionID != nil {
		w.add("transaction_id = $%d", *filter.TransactionID)
	}

	query := `SELECT ` + selectReviewColumns + ` FROM reviews` + w.String() + " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}

	return collect(rows, scanReview)
}

func (u *unit) CreateReview(ctx context.Context, r *ledger.Review) error {
	query := `
		INSERT INTO reviews (transaction_id, reviewer_id, reviewed_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		r.TransactionID,
		r.ReviewerID,
		r.ReviewedID,
		r.Rating,
		r.Comment,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateReview
		}

		return fmt.Errorf("creating review: %w", err)
	}

	return nil
}

const selectDepositColumns = `invoice_id, user_id, amount, pay_url, status, created_at, paid_at`

func scanDeposit(s scanner) (*ledger.Deposit, error) {
	var d ledger.Deposit

	var status string

	if err := s.Scan(&d.InvoiceID, &d.UserID, &d.Amount, &d.PayURL, &status, &d.CreatedAt, &d.PaidAt); err != nil {
		return nil, err
	}

	d.Status = ledger.DepositStatus(status)

	return &d, nil
}

func getDeposit(ctx context.Context, q querier, invoiceID string, lock bool) (*ledger.Deposit, error) {
	query := forUpdate(`SELECT `+selectDepositColumns+` FROM deposits WHERE invoice_id = $1`, lock)

	d, err := scanDeposit(q.QueryRowContext(ctx, query, invoiceID))
	if err != nil {
		return nil, notFound(err, "deposit", invoiceID)
	}

	return d, nil
}

func (u *unit) CreateDeposit(ctx context.Context, d *ledger.Deposit) error {
	query := `
		INSERT INTO deposits (invoice_id, user_id, amount, pay_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err := u.tx.QueryRowContext(ctx, query, d.InvoiceID, d.UserID, d.Amount, d.PayURL, d.Status).Scan(&d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice %s already recorded", ledger.ErrInvalidState, d.InvoiceID)
		}

		return fmt.Errorf("creating deposit: %w", err)
	}

	return nil
}

func (u *unit) LockDeposit(ctx context.Context, invoiceID string) (*ledger.Deposit, error) {
	return getDeposit(ctx, u.tx, invoiceID, true)
}

func (u *unit) MarkDepositPaid(ctx context.Context, invoiceID string, paidAt time.Time) error {
	query := `UPDATE deposits SET status = $2, paid_at = $3 WHERE invoice_id = $1 AND status = $4`

	res, err := u.tx.ExecContext(ctx, query, invoiceID, ledger.DepositPaid, paidAt, ledger.DepositPending)
	if err != nil {
		return fmt.Errorf("marking deposit paid: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	current, err := getDeposit(ctx, u.tx, invoiceID, false)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: deposit %s is %s", ledger.ErrInvalidState, invoiceID, current.Status)
}
