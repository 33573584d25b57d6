package escrow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const (
	sweepBatch   = 100
	sweepWorkers = 4
)

// CompleteExpired completes pending transactions whose rental period ended
// before now and returns how many it settled. A transaction disputed or settled
// concurrently fails with ErrInvalidState and is skipped.
func (s *Service) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	pending := ledger.TransactionPending

	due, err := s.store.ListTransactions(ctx, ledger.TransactionFilter{
		Status:        &pending,
		ExpiresBefore: &now,
		Limit:         sweepBatch,
	})
	if err != nil {
		return 0, err
	}

	settled := make([]bool, len(due))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepWorkers)

	for i, t := range due {
		g.Go(func() error {
			_, err := s.MarkCompleted(gctx, t.ID)
			if errors.Is(err, ledger.ErrInvalidState) {
				return nil
			}

			if err != nil {
				return err
			}

			settled[i] = true

			return nil
		})
	}

	err = g.Wait()

	var n int

	for _, ok := range settled {
		if ok {
			n++
		}
	}

	return n, err
}

// Sweeper periodically completes expired transactions until its context ends.
type Sweeper struct {
	escrow   *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(escrow *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{escrow: escrow, interval: interval, logger: logger}
}

func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	n, err := w.escrow.CompleteExpired(ctx, w.escrow.now())
	if err != nil {
		w.logger.Error("failed to complete expired transactions", "error", err)
	}

	if n > 0 {
		w.logger.Info("completed expired transactions", "count", n)
	}
}
