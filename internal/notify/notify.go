// Package notify delivers plain-text messages to marketplace users.
// Delivery is best effort: a failed notification never affects ledger state.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

//go:generate mockgen -source=notify.go -destination=notify_mock.go -package=notify
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Log writes notifications to the logger instead of delivering them.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, userID int64, text string) error {
	l.logger.Info("notification", "user_id", userID, "text", text)
	return nil
}

// Async dispatches each notification on its own goroutine, bounded by a timeout
// and detached from the caller's cancellation. Errors are logged, never returned.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, logger *slog.Logger) *Async {
	return &Async{next: next, timeout: timeout, logger: logger}
}

func (a *Async) Notify(ctx context.Context, userID int64, text string) error {
	ctx = context.WithoutCancel(ctx)

	a.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		if err := a.next.Notify(ctx, userID, text); err != nil {
			a.logger.Warn("notification failed", "user_id", userID, "error", err)
		}
	})

	return nil
}

// Wait blocks until every dispatched notification has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

// Send notifies each user in turn and logs failures. It is the helper services use
// after commit, where a notification error must not reach the caller.
func Send(ctx context.Context, n Notifier, logger *slog.Logger, text string, userIDs ...int64) {
	for _, id := range userIDs {
		if err := n.Notify(ctx, id, text); err != nil {
			logger.Warn("notification failed", "user_id", id, "error", err)
		}
	}
}
