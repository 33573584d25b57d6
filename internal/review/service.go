// Package review collects feedback on completed deals and keeps each account's
// rating equal to the rounded mean of every rating it has received.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/notify"
)

const (
	DefaultWindow    = 7 * 24 * time.Hour
	MaxCommentLength = 500
)

type Service struct {
	store    ledger.Store
	notifier notify.Notifier
	logger   *slog.Logger
	window   time.Duration
	now      func() time.Time
}

// NewService returns a review service. A zero window lets parties review a
// completed deal at any time.
func NewService(store ledger.Store, notifier notify.Notifier, window time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		window:   window,
		now:      time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit records reviewerID's rating of the other party of a completed transaction.
func (s *Service) Submit(ctx context.Context, transactionID uuid.UUID, reviewerID int64, rating int, comment string) (*ledger.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ledger.ErrInvalidInput)
	}

	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment is longer than %d characters", ledger.ErrInvalidInput, MaxCommentLength)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := tx.LockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	reviewedID, ok := t.Counterpart(reviewerID)
	if !ok {
		return nil, fmt.Errorf("%w: only the buyer or the seller can review a deal", ledger.ErrInvalidInput)
	}

	if t.Status != ledger.TransactionCompleted {
		return nil, fmt.Errorf("%w: only completed deals can be reviewed", ledger.ErrInvalidState)
	}

	if !s.withinWindow(t, s.now()) {
		return nil, fmt.Errorf("%w: the review window for this deal has closed", ledger.ErrInvalidState)
	}

	r := &ledger.Review{
		TransactionID: t.ID,
		ReviewerID:    reviewerID,
		ReviewedID:    reviewedID,
		Rating:        rating,
		Comment:       comment,
	}

	if err := tx.CreateReview(ctx, r); err != nil {
		return nil, err
	}

	acc, err := tx.LockAccount(ctx, reviewedID)
	if err != nil {
		return nil, err
	}

	sum := acc.RatingSum + int64(rating)
	count := acc.RatingCount + 1
	mean := ledger.MeanRating(sum, count)

	if err := tx.UpdateRating(ctx, reviewedID, sum, count, mean); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("review submitted",
		"transaction_id", t.ID, "reviewer_id", reviewerID, "reviewed_id", reviewedID, "rating", rating, "new_rating", mean.String())

	notify.Send(ctx, s.notifier, s.logger,
		fmt.Sprintf("You received a %d★ review. Your rating is now %s.", rating, mean.StringFixed(1)),
		reviewedID)

	return r, nil
}

// ListFor returns the reviews userID has received, newest first.
func (s *Service) ListFor(ctx context.Context, userID int64) ([]*ledger.Review, error) {
	return s.store.ListReviews(ctx, ledger.ReviewFilter{ReviewedID: &userID})
}

// Pending returns completed deals userID took part in, can still review and has not reviewed yet.
func (s *Service) Pending(ctx context.Context, userID int64) ([]*ledger.Transaction, error) {
	now := s.now()
	completed := ledger.TransactionCompleted

	filter := ledger.TransactionFilter{PartyID: &userID, Status: &completed}
	if s.window > 0 {
		filter.CompletedAfter = new(now.Add(-s.window))
	}

	txs, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	written, err := s.store.ListReviews(ctx, ledger.ReviewFilter{ReviewerID: &userID})
	if err != nil {
		return nil, err
	}

	reviewed := make(map[uuid.UUID]struct{}, len(written))
	for _, r := range written {
		reviewed[r.TransactionID] = struct{}{}
	}

	var pending []*ledger.Transaction

	for _, t := range txs {
		if _, done := reviewed[t.ID]; done {
			continue
		}

		pending = append(pending, t)
	}

	return pending, nil
}

func (s *Service) withinWindow(t *ledger.Transaction, now time.Time) bool {
	if s.window <= 0 || t.CompletedAt == nil {
		return true
	}

	return !now.After(t.CompletedAt.Add(s.window))
}
