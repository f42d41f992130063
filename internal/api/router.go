package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"promo-engine/internal/observability"
)

func Router(h *PromoHandler, adminToken string) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Second))

	r.Route("/v1/promo", func(r chi.Router) {
		r.Get("/", h.Promo)
		r.Post("/sessions", h.OpenSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/close", h.CloseSession)
		r.Post("/sessions/{id}/outside-click", h.ClickOutside)
		r.Delete("/sessions/{id}", h.UnmountSession)
	})
	r.Route("/v1/admin/promo", func(r chi.Router) {
		r.Use(RequireToken(adminToken))
		r.Get("/", h.GetCampaign)
		r.Put("/", h.PutCampaign)
		r.Delete("/", h.DeleteCampaign)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}

// RequireToken checks a bearer token. An empty token leaves the routes open.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
