/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. SlogLogger: Structured request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /healthz                 Liveness + database check
  /api/allowance/*         Allowance calculator
  /api/users/*             Users, their entries, expenses and timesheets
  /api/projects/*          Projects and allocations
  /api/settings/*          Country rates, VAT rates, currencies
  /api/timesheets/*        Approval queue
  /api/scenarios/*         Demo data (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// CORSOrigins lists allowed origins; "*" allows any origin without
	// credentials.
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = h.Logger
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	anyOrigin := len(origins) == 1 && origins[0] == "*"

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(SlogLogger(logger.With("component", "http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !anyOrigin,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/allowance/calculate", h.CalculateAllowance)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)

			r.Get("/{id}/entries", h.ListEntries)
			r.Post("/{id}/entries", h.CreateEntry)
			r.Get("/{id}/expenses", h.ListExpenses)
			r.Post("/{id}/expenses", h.CreateExpense)
			r.Get("/{id}/timesheets", h.ListUserTimesheets)
			r.Post("/{id}/timesheets/{week}/submit", h.SubmitTimesheet)
		})

		r.Delete("/entries/{id}", h.DeleteEntry)
		r.Delete("/expenses/{id}", h.DeleteExpense)

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
			r.Get("/{id}/allocations", h.ListAllocations)
			r.Post("/{id}/allocations", h.CreateAllocation)
		})
		r.Delete("/allocations/{id}", h.DeleteAllocation)

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/countries", h.ListCountryRates)
			r.Get("/countries/{code}", h.GetCountryRate)
			r.Put("/countries/{code}", h.SaveCountryRate)
			r.Delete("/countries/{code}", h.DeleteCountryRate)

			r.Get("/vat", h.ListVATRates)
			r.Get("/vat/{code}", h.GetVATRate)
			r.Put("/vat/{code}", h.SaveVATRate)
			r.Delete("/vat/{code}", h.DeleteVATRate)

			r.Get("/currencies", h.ListCurrencies)
			r.Get("/currencies/{code}", h.GetCurrency)
			r.Put("/currencies/{code}", h.SaveCurrency)
			r.Delete("/currencies/{code}", h.DeleteCurrency)

			r.Post("/defaults", h.AddDefaultSettings)
		})

		// Timesheet approval routes
		r.Route("/timesheets", func(r chi.Router) {
			r.Get("/pending", h.ListPendingTimesheets)
			r.Get("/{id}", h.GetTimesheet)
			r.Post("/{id}/approve", h.ApproveTimesheet)
			r.Post("/{id}/reject", h.RejectTimesheet)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
