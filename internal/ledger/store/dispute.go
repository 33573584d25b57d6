package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const selectDisputeColumns = `id, transaction_id, initiator_id, description, status, outcome, created_at, resolved_at`

func scanDispute(s scanner) (*ledger.Dispute, error) {
	var d ledger.Dispute

	var status string

	var outcome sql.NullString

	if err := s.Scan(&d.ID, &d.TransactionID, &d.InitiatorID, &d.Description, &status, &outcome, &d.CreatedAt, &d.ResolvedAt); err != nil {
		return nil, err
	}

	d.Status = ledger.DisputeStatus(status)

	if outcome.Valid {
		d.Outcome = new(ledger.Outcome(outcome.String))
	}

	return &d, nil
}

func getDispute(ctx context.Context, q querier, id uuid.UUID, lock bool) (*ledger.Dispute, error) {
	query := forUpdate(`SELECT `+selectDisputeColumns+` FROM disputes WHERE id = $1`, lock)

	d, err := scanDispute(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "dispute", id)
	}

	return d, nil
}

func (s *Store) ListDisputes(ctx context.Context, filter ledger.DisputeFilter) ([]*ledger.Dispute, error) {
	var w where

	if filter.Status != nil {
		w.add("status = $%d", *filter.Status)
	}

	if filter.InitiatorID != nil {
		w.add("initiator_id = $%d", *filter.InitiatorID)
	}

	if filter.TransactionID != nil {
		w.add("transaction_id = $%d", *filter.TransactionID)
	}

	query := `SELECT ` + selectDisputeColumns + ` FROM disputes` + w.String() + " ORDER BY created_at DESC"
	query += w.limit(filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing disputes: %w", err)
	}

	return collect(rows, scanDispute)
}

func (u *unit) CreateDispute(ctx context.Context, d *ledger.Dispute) error {
	query := `
		INSERT INTO disputes (transaction_id, initiator_id, description, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		d.TransactionID,
		d.InitiatorID,
		d.Description,
		d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %s already has a dispute", ledger.ErrInvalidState, d.TransactionID)
		}

		return fmt.Errorf("creating dispute: %w", err)
	}

	return nil
}

func (u *unit) LockDispute(ctx context.Context, id uuid.UUID) (*ledger.Dispute, error) {
	return getDispute(ctx, u.tx, id, true)
}

func (u *unit) UpdateDispute(ctx context.Context, d *ledger.Dispute, from ledger.DisputeStatus) error {
	query := `
		UPDATE disputes
		SET status = $3, outcome = $4, resolved_at = $5
		WHERE id = $1 AND status = $2
	`

	var outcome *string
	if d.Outcome != nil {
		outcome = new(string(*d.Outcome))
	}

	res, err := u.tx.ExecContext(ctx, query, d.ID, from, d.Status, outcome, d.ResolvedAt)
	if err != nil {
		return fmt.Errorf("updating dispute: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	current, err := getDispute(ctx, u.tx, d.ID, false)
	if err != nil {
		return err
	}

	return fmt.Errorf("%w: dispute %s is %s", ledger.ErrInvalidState, d.ID, current.Status)
}
