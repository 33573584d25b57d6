package view

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/money"
)

const dbTimeout = 5 * time.Second

// FormatAmount renders cents as a USDT amount.
func FormatAmount(cents int64) string {
	return money.Format(cents) + " USDT"
}

// FormatTime formats a time.Time into YYYY-MM-DD HH:MM in local time.
func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// ShortID keeps the first block of a UUID, enough to tell rows apart on screen.
func ShortID(id uuid.UUID) string {
	return id.String()[:8]
}

func formatUser(id int64) string {
	return strconv.FormatInt(id, 10)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
