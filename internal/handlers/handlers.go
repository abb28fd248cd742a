// Package handlers wires HTTP routing and API handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailerdeck/trailerdeck/internal/auth"
	"github.com/trailerdeck/trailerdeck/internal/billing"
	"github.com/trailerdeck/trailerdeck/internal/ingest"
	"github.com/trailerdeck/trailerdeck/internal/searches"
	"github.com/trailerdeck/trailerdeck/internal/store"
)

type Handler struct {
	store      *store.Store
	auth       *auth.Manager
	billing    *billing.Client // nil when Stripe is not configured
	pipeline   *ingest.Pipeline
	recent     *searches.Recorder
	adminToken string
}

type Config struct {
	Store      *store.Store
	Auth       *auth.Manager
	Billing    *billing.Client
	Pipeline   *ingest.Pipeline
	Recent     *searches.Recorder
	AdminToken string
}

func New(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("auth manager is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("ingest pipeline is required")
	}
	if cfg.Recent == nil {
		cfg.Recent = searches.New(nil)
	}
	return &Handler{
		store:      cfg.Store,
		auth:       cfg.Auth,
		billing:    cfg.Billing,
		pipeline:   cfg.Pipeline,
		recent:     cfg.Recent,
		adminToken: cfg.AdminToken,
	}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/healthz", Adapt(h.getHealthz))

	r.Method(http.MethodPost, "/auth/register", Adapt(h.postRegister))
	r.Method(http.MethodPost, "/auth/login", Adapt(h.postLogin))

	// Stripe calls this; it authenticates with its signature, not a JWT.
	r.Method(http.MethodPost, "/billing/webhook", Adapt(h.postBillingWebhook))

	r.Group(func(r chi.Router) {
		r.Use(h.MiddlewareRequireAuth)

		r.Method(http.MethodGet, "/session", Adapt(h.getSession))

		r.Route("/movies", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getMovies))

			r.Route("/{id:[0-9]+}", func(r chi.Router) {
				r.Method(http.MethodGet, "/", Adapt(h.getMovie))
				r.Method(http.MethodPut, "/rating", Adapt(h.putRating))
				r.Method(http.MethodDelete, "/rating", Adapt(h.deleteRating))
				r.Method(http.MethodPost, "/watched", Adapt(h.postWatched))
			})
		})

		r.Method(http.MethodGet, "/genres", Adapt(h.getGenres))
		r.Method(http.MethodGet, "/suggest", Adapt(h.getSuggest))

		r.Route("/searches/recent", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getRecentSearches))
			r.Method(http.MethodPost, "/", Adapt(h.postRecentSearch))
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Method(http.MethodGet, "/", Adapt(h.getWatchlist))
			r.Method(http.MethodPut, "/{movieID:[0-9]+}", Adapt(h.putWatchlistItem))
			r.Method(http.MethodDelete, "/{movieID:[0-9]+}", Adapt(h.deleteWatchlistItem))
		})

		r.Method(http.MethodGet, "/history", Adapt(h.getHistory))

		r.Method(http.MethodPost, "/billing/checkout", Adapt(h.postBillingCheckout))
		r.Method(http.MethodGet, "/billing/subscription", Adapt(h.getBillingSubscription))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.MiddlewareRequireAdmin)
		r.Method(http.MethodPost, "/admin/ingest", Adapt(h.postIngest))
	})
}

func (h *Handler) getHealthz(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}
