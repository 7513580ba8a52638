/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/users/*        Per-user progression, coins, redemptions
  /api/events/*       Inbound activity events from HR systems
  /api/benefits/*     Benefit catalog
  /api/redemptions/*  Redemption approval workflow
  /api/admin/*        Grants and log replay
  /api/levels         Level table
  /api/achievements   Achievement catalog

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Admin routes must be gated before production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/progression", h.GetProgression)
			r.Get("/xp-events", h.GetXPEvents)
			r.Get("/level-ups", h.GetLevelUps)
			r.Get("/coins", h.GetAccount)
			r.Get("/coins/transactions", h.GetCoinTransactions)
			r.Get("/redemptions", h.GetUserRedemptions)
			r.Get("/achievements", h.GetUserAchievements)
			r.Post("/achievements/{achievementId}/seen", h.MarkAchievementSeen)
		})

		// Inbound event routes
		r.Route("/events", func(r chi.Router) {
			r.Post("/training", h.PostTrainingEvent)
			r.Post("/checkin", h.PostCheckinEvent)
			r.Post("/feedback", h.PostFeedbackEvent)
			r.Post("/login", h.PostLoginEvent)
			r.Post("/coins", h.PostCoinsEvent)
		})

		// Benefit catalog routes
		r.Route("/benefits", func(r chi.Router) {
			r.Get("/", h.ListBenefits)
			r.Post("/", h.CreateBenefit)
		})

		// Redemption approval routes
		r.Route("/redemptions", func(r chi.Router) {
			r.Post("/", h.SubmitRedemption)
			r.Get("/pending", h.ListPendingRedemptions)
			r.Get("/{id}", h.GetRedemption)
			r.Post("/{id}/approve", h.ApproveRedemption)
			r.Post("/{id}/reject", h.RejectRedemption)
			r.Post("/{id}/fulfill", h.FulfillRedemption)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/grants", h.CreateGrant)
			r.Post("/rebuild/{userId}", h.RebuildUser)
		})

		// Catalog routes
		r.Get("/levels", h.ListLevels)
		r.Get("/achievements", h.ListAchievements)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
