package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Server-Binary", "cmd/server")
			next.ServeHTTP(w, req)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health.HandleHealth)
	r.Get("/health/live", h.health.HandleLiveness)
	r.Get("/health/ready", h.health.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", h.Meta)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.ListLeads)
			r.Post("/", h.CreateLead)
			r.Get("/schedule", h.LeadSchedule)
			r.Get("/summary", h.LeadSummary)
			r.Get("/export", h.ExportLeads)
			r.Post("/import", h.ImportLeads)
			r.Get("/archive", h.ListArchives)
			r.Post("/archive", h.ArchiveLeads)
			r.Get("/ref/{ref}", h.GetLeadByRef)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetLead)
				r.Patch("/", h.UpdateLead)
				r.Delete("/", h.DeleteLead)
				r.Get("/activities", h.ListLeadActivities)
				r.Post("/activities", h.LogLeadActivity)
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCustomer)
				r.Patch("/", h.UpdateCustomer)
				r.Delete("/", h.DeleteCustomer)
				r.Get("/activities", h.ListCustomerActivities)
				r.Post("/activities", h.LogCustomerActivity)
			})
		})

		r.Delete("/activities/{id}", h.DeleteActivity)
	})

	return r
}
