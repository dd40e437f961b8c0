/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions for the dashboard-facing REST surface. The scheduler talks
  to the engine over the message queue; the dashboard additionally gets
  this synchronous surface for its browser frontend.

ROUTER: chi
  - Lightweight and fast
  - Context-based
  - Middleware support

MIDDLEWARE STACK:
  1. Recoverer:  Panic recovery (500 instead of crash)
  2. RequestID:  Unique ID per request
  3. CORS:       The dashboard frontend runs in a browser

ROUTES:
  GET  /api/health                       Liveness
  GET  /api/inventory/status             Classified ledger snapshot
  GET  /api/inventory/stock-level        Entry counts per level
  GET  /api/inventory/category-summary   Weakest subtype per category
  GET  /api/inventory/category-count     Subtype counts per category
  POST /api/inventory/refill             Refill entries
  POST /api/inventory/update             Apply signed corrections
  POST /api/validation/pre-check         Advisory feasibility check

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

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/status", h.IngredientStatus)
			r.Get("/stock-level", h.StockLevel)
			r.Get("/category-summary", h.CategorySummary)
			r.Get("/category-count", h.CategoryCount)
			r.Post("/refill", h.Refill)
			r.Post("/update", h.UpdateInventory)
		})

		r.Route("/validation", func(r chi.Router) {
			r.Post("/pre-check", h.PreCheck)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
