package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const selectListingColumns = `id, seller_id, service, duration_hours, price, status, created_at`

func scanListing(s scanner) (*ledger.Listing, error) {
	var l ledger.Listing

	var service, status string

	if err := s.Scan(&l.ID, &l.SellerID, &service, &l.DurationHours, &l.Price, &status, &l.CreatedAt); err != nil {
		return nil, err
	}

	l.Service = ledger.Service(service)
	l.Status = ledger.ListingStatus(status)

	return &l, nil
}

func getListing(ctx context.Context, q querier, id uuid.UUID, lock bool) (*ledger.Listing, error) {
	query := forUpdate(`SELECT `+selectListingColumns+` FROM listings WHERE id = $1`, lock)

	l, err := scanListing(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "listing", id)
	}

	return l, nil
}

func listingOrder(o ledger.ListingOrder) string {
	switch o {
	case ledger.OrderPriceAsc:
		return " ORDER BY price ASC, created_at DESC, id"
	case ledger.OrderPriceDesc:
		return " ORDER BY price DESC, created_at DESC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

func (s *Store) ListListings(ctx context.Context, filter ledger.ListingFilter) ([]*ledger.Listing, error) {
	var w where

	if filter.Status != nil {
		w.add("status = $%d", *filter.Status)
	}

	if filter.Service != nil {
		w.add("service = $%d", *filter.Service)
	}

	if filter.SellerID != nil {
		w.add("seller_id = $%d", *filter.SellerID)
	}

	query := `SELECT ` + selectListingColumns + ` FROM listings` + w.String() + listingOrder(filter.Order)
	query += w.limit(filter.Limit)
	query += w.offset(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}

	return collect(rows, scanListing)
}

func (u *unit) CreateListing(ctx context.Context, l *ledger.Listing) error {
	query := `
		INSERT INTO listings (seller_id, service, duration_hours, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := u.tx.QueryRowContext(ctx, query,
		l.SellerID,
		l.Service,
		l.DurationHours,
		l.Price,
		l.Status,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating listing: %w", err)
	}

	return nil
}

func (u *unit) LockListing(ctx context.Context, id uuid.UUID) (*ledger.Listing, error) {
	return getListing(ctx, u.tx, id, true)
}

func (u *unit) MarkListingSold(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE listings SET status = $2 WHERE id = $1 AND status = $3`

	res, err := u.tx.ExecContext(ctx, query, id, ledger.ListingSold, ledger.ListingActive)
	if err != nil {
		return fmt.Errorf("marking listing sold: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrListingUnavailable
	}

	return nil
}
