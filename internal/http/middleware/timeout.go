package middleware

import (
	"net/http"
	"time"
)

// ReadTimeout answers 503 when a GET or HEAD request runs longer than d. Other
// methods are never cut off, so a mutation's reply always says whether it committed.
func ReadTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		timed := http.TimeoutHandler(next, d, "request timed out")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				timed.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
