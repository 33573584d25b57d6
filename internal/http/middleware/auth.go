// Package middleware holds the API's HTTP middleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/numrent/internal/auth"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

type Verifier interface {
	Verify(token string) (auth.Principal, error)
}

// Authenticate requires a valid bearer token and stores its principal in the
// request context.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				respond.Error(w, r, auth.ErrInvalidToken)
				return
			}

			p, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok || !p.Admin() {
			respond.Error(w, r, ledger.ErrForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Principal returns the authenticated caller. Handlers behind Authenticate
// always have one.
func Principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
