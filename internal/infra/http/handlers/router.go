package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/followwise/internal/infra/http/middleware"
	"github.com/xavierca1/followwise/internal/logger"
)

type Routes struct {
	Leads      *LeadHandler
	Followups  *FollowupHandler
	SentEmails *SentEmailHandler
	Analytics  *AnalyticsHandler
	Health     *HealthHandler

	CORSOrigins []string
}

func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(logger.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	r.Get("/health", rt.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/leads", func(r chi.Router) {
		r.Get("/", rt.Leads.List)
		r.Post("/", rt.Leads.Create)
		r.Post("/import", rt.Leads.Import)

		r.Route("/{leadId}", func(r chi.Router) {
			r.Get("/", rt.Leads.Get)
			r.Patch("/", rt.Leads.Update)
			r.Delete("/", rt.Leads.Delete)

			r.Post("/followups/generate", rt.Followups.HandleGenerate)
			r.Get("/followups", rt.Followups.HandleList)
			r.Post("/followups/{variantIndex}/send", rt.Followups.HandleSend)

			r.Get("/sent-emails", rt.SentEmails.ListForLead)
			r.Post("/sent-emails", rt.SentEmails.LogForLead)
		})
	})

	r.Get("/sent-emails", rt.SentEmails.List)
	r.Post("/sent-emails", rt.SentEmails.Log)
	r.Get("/analytics", rt.Analytics.Handle)

	return r
}
