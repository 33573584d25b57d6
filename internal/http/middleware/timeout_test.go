package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/numrent/internal/http/middleware"
)

func TestReadTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-r.Context().Done():
			return
		}

		w.WriteHeader(http.StatusCreated)
	})

	h := middleware.ReadTimeout(10 * time.Millisecond)(slow)

	tests := []struct {
		method string
		want   int
	}{
		{method: http.MethodGet, want: http.StatusServiceUnavailable},
		{method: http.MethodPost, want: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/v1/listings", nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
