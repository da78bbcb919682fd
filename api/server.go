/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: One logrus line per request (method, path, status, duration)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/cycles/*                   Cycle calendar (no user data)
  /api/users/{userID}/*           Transactions, snapshots, budgets, plans, reports
  /api/reports/*                  Scheduled report runs
  /api/scenarios/*                Demo scenarios
  /healthz                        Liveness

SECURITY NOTE:
  No authentication middleware. The user id in the path is trusted.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cycles", func(r chi.Router) {
			r.Get("/", h.ListCycles)
			r.Get("/containing", h.CycleContaining)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				r.Post("/import", h.ImportTransactions)
				r.Get("/{id}", h.GetTransaction)
				r.Put("/{id}", h.UpdateTransaction)
				r.Delete("/{id}", h.DeleteTransaction)
				r.Get("/{id}/installments", h.GetInstallments)
			})

			r.Get("/cycles", h.ListUserCycles)
			r.Get("/snapshot", h.GetSnapshot)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Put("/{kind}/{name}/budget", h.SetBudget)
				r.Delete("/{kind}/{name}/budget", h.ResetBudget)
			})

			r.Route("/simulation/{year}", func(r chi.Router) {
				r.Get("/", h.GetSimulation)
				r.Put("/", h.PutSimulation)
				r.Get("/comparison", h.CompareSimulation)
			})

			r.Get("/report", h.GetReport)
			r.Get("/report/subscriptions", h.ListSubscriptions)
			r.Post("/report/subscriptions", h.Subscribe)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/runs", h.ListRuns)
			r.Post("/dispatch", h.DispatchReports)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// RequestLogger logs one line per request through logrus.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(logrus.Fields{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			})
			if status >= http.StatusInternalServerError {
				entry.Error("HTTP request")
				return
			}
			entry.Info("HTTP request")
		})
	}
}
