package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/numrent/internal/auth"
	"github.com/MrJamesThe3rd/numrent/internal/http/middleware"
)

func TestAuthenticate(t *testing.T) {
	issuer := auth.NewIssuer("k", time.Hour, []int64{1})

	var seen auth.Principal
	h := middleware.Authenticate(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.Principal(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	admin := middleware.Authenticate(issuer)(middleware.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	userToken, _, err := issuer.Issue(5)
	require.NoError(t, err)

	adminToken, _, err := issuer.Issue(1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		handler http.Handler
		header  string
		want    int
	}{
		{name: "Missing", handler: h, want: http.StatusUnauthorized},
		{name: "NotBearer", handler: h, header: "Basic abc", want: http.StatusUnauthorized},
		{name: "Garbage", handler: h, header: "Bearer abc", want: http.StatusUnauthorized},
		{name: "Valid", handler: h, header: "Bearer " + userToken, want: http.StatusNoContent},
		{name: "AdminRouteAsUser", handler: admin, header: "Bearer " + userToken, want: http.StatusForbidden},
		{name: "AdminRouteAsAdmin", handler: admin, header: "Bearer " + adminToken, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Equal(t, auth.Principal{UserID: 5, Role: auth.RoleUser}, seen)
}
