// Package listing publishes sellers' rental offers and lets buyers browse the active ones.
package listing

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const DefaultPageSize = 50

type Service struct {
	store    ledger.Store
	logger   *slog.Logger
	pageSize int
}

func NewService(store ledger.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, pageSize: DefaultPageSize}
}

// WithPageSize sets how many listings FindActive fetches per store round trip.
func (s *Service) WithPageSize(n int) *Service {
	if n > 0 {
		s.pageSize = n
	}

	return s
}

type CreateParams struct {
	Service       ledger.Service
	DurationHours int
	Price         int64
}

func (p CreateParams) validate() error {
	if !p.Service.Valid() {
		return fmt.Errorf("%w: unknown service %q", ledger.ErrInvalidInput, p.Service)
	}

	if !ledger.ValidDuration(p.DurationHours) {
		return fmt.Errorf("%w: duration must be one of %v hours", ledger.ErrInvalidInput, ledger.RentalHours)
	}

	if p.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ledger.ErrInvalidInput)
	}

	return nil
}

type Filter struct {
	Service  *ledger.Service
	SellerID *int64
}

func (s *Service) Create(ctx context.Context, sellerID int64, params CreateParams) (*ledger.Listing, error) {
	created, err := s.CreateBatch(ctx, sellerID, []CreateParams{params})
	if err != nil {
		return nil, err
	}

	return created[0], nil
}

// CreateBatch validates every row first and then inserts them all in one unit of
// work, so either every listing is published or none is.
func (s *Service) CreateBatch(ctx context.Context, sellerID int64, params []CreateParams) ([]*ledger.Listing, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no listings to create", ledger.ErrInvalidInput)
	}

	for i, p := range params {
		if err := p.validate(); err != nil {
			if len(params) == 1 {
				return nil, err
			}

			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.LockAccount(ctx, sellerID); err != nil {
		return nil, err
	}

	listings := make([]*ledger.Listing, 0, len(params))

	for _, p := range params {
		l := &ledger.Listing{
			SellerID:      sellerID,
			Service:       p.Service,
			DurationHours: p.DurationHours,
			Price:         p.Price,
			Status:        ledger.ListingActive,
		}

		if err := tx.CreateListing(ctx, l); err != nil {
			return nil, err
		}

		listings = append(listings, l)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("listings created", "seller_id", sellerID, "count", len(listings))

	return listings, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ledger.Listing, error) {
	return s.store.GetListing(ctx, id)
}

// FindActive yields active listings in the requested order. Nothing is fetched
// until the sequence is ranged, pages are fetched on demand, and ranging it again
// starts over from the first page.
func (s *Service) FindActive(ctx context.Context, filter Filter, order ledger.ListingOrder) iter.Seq2[*ledger.Listing, error] {
	if order == "" {
		order = ledger.OrderNewest
	}

	return func(yield func(*ledger.Listing, error) bool) {
		if !order.Valid() {
			yield(nil, fmt.Errorf("%w: unknown order %q", ledger.ErrInvalidInput, order))
			return
		}

		active := ledger.ListingActive

		for offset := 0; ; offset += s.pageSize {
			page, err := s.store.ListListings(ctx, ledger.ListingFilter{
				Status:   &active,
				Service:  filter.Service,
				SellerID: filter.SellerID,
				Order:    order,
				Limit:    s.pageSize,
				Offset:   offset,
			})
			if err != nil {
				yield(nil, err)
				return
			}

			for _, l := range page {
				if !yield(l, nil) {
					return
				}
			}

			if len(page) < s.pageSize {
				return
			}
		}
	}
}
