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
  /api/organizations/*  Organizations, settings, employees, cycles
  /api/employees/*      Employee detail, compensation, payslips
  /api/cycles/*         Cycle lifecycle and items
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		// Organization routes
		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", h.ListOrganizations)
			r.Post("/", h.CreateOrganization)
			r.Get("/{id}", h.GetOrganization)
			r.Get("/{id}/settings", h.GetSettings)
			r.Put("/{id}/settings", h.PutSettings)
			r.Get("/{id}/employees", h.ListEmployees)
			r.Post("/{id}/employees", h.CreateEmployee)
			r.Get("/{id}/cycles", h.ListCycles)
			r.Post("/{id}/cycles", h.CreateCycle)
			r.Post("/{id}/backfill", h.TriggerBackfill)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/compensation", h.ListCompensation)
			r.Post("/{id}/compensation", h.CreateCompensation)
			r.Get("/{id}/payslips", h.GetPayslips)
		})

		// Cycle lifecycle routes
		r.Route("/cycles", func(r chi.Router) {
			r.Get("/{id}", h.GetCycle)
			r.Post("/{id}/compute", h.ComputeCycle)
			r.Post("/{id}/submit", h.SubmitCycle)
			r.Post("/{id}/approve", h.ApproveCycle)
			r.Post("/{id}/reject", h.RejectCycle)
			r.Post("/{id}/process", h.ProcessCycle)
			r.Put("/{id}/incentives", h.SetIncentive)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Payroll Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Payroll Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/organizations">/api/organizations</a> - List organizations</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
