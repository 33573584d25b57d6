package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/numrent/internal/http/account"
	"github.com/MrJamesThe3rd/numrent/internal/http/admin"
	"github.com/MrJamesThe3rd/numrent/internal/http/dispute"
	"github.com/MrJamesThe3rd/numrent/internal/http/export"
	"github.com/MrJamesThe3rd/numrent/internal/http/funding"
	"github.com/MrJamesThe3rd/numrent/internal/http/listing"
	authmw "github.com/MrJamesThe3rd/numrent/internal/http/middleware"
	"github.com/MrJamesThe3rd/numrent/internal/http/purchase"
	"github.com/MrJamesThe3rd/numrent/internal/http/review"
	"github.com/MrJamesThe3rd/numrent/internal/http/session"
)

type Handlers struct {
	Session   *session.Handler
	Accounts  *account.Handler
	Listings  *listing.Handler
	Purchases *purchase.Handler
	Disputes  *dispute.Handler
	Reviews   *review.Handler
	Funding   *funding.Handler
	Export    *export.Handler
	Admin     *admin.Handler
}

func New(verifier authmw.Verifier, allowedOrigins []string, h Handlers) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", h.Session.Routes)
		r.Route("/webhooks", h.Funding.WebhookRoutes)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate(verifier))

			r.Route("/accounts", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Accounts.Routes(r)
			})

			r.Route("/listings", h.Listings.Routes)

			r.Route("/purchases", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Purchases.Routes(r)
			})

			r.Route("/disputes", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Disputes.Routes(r)
			})

			r.Route("/reviews", h.Reviews.Routes)
			r.Route("/export", h.Export.Routes)

			r.Route("/funding", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Funding.Routes(r)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(authmw.RequireAdmin)
				r.Use(middleware.AllowContentType("application/json"))
				h.Admin.Routes(r)
			})
		})
	})

	return router
}
