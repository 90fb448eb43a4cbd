package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/parisxmas/formdesk/internal/auth"
	"github.com/parisxmas/formdesk/internal/handler"
	mw "github.com/parisxmas/formdesk/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Forms       *handler.FormHandler
	Public      *handler.PublicHandler
	Submissions *handler.SubmissionHandler
	Dashboard   *handler.DashboardHandler
	Webhooks    *handler.WebhookHandler
	Integration *handler.IntegrationHandler
	Live        *handler.LiveHandler
	Search      *handler.SearchHandler
	Admin       *handler.AdminHandler
}

type Options struct {
	JWTSecret  string
	APIKeys    auth.KeyLookup
	CORSOrigin string
	Log        zerolog.Logger
}

func New(opts Options, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Recovery(opts.Log))
	r.Use(mw.Logger(opts.Log))
	r.Use(mw.CORS(opts.CORSOrigin))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Public routes
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/register", h.Auth.Register)
		r.Get("/public/forms/{formId}", h.Public.GetForm)
		r.Post("/public/forms/{formId}/submissions", h.Public.Submit)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(opts.JWTSecret, opts.APIKeys))

			// Auth
			r.Get("/auth/me", h.Auth.Me)
			r.Put("/auth/profile", h.Auth.UpdateProfile)
			r.Put("/auth/password", h.Auth.ChangePassword)
			r.Post("/auth/regenerate-api-key", h.Auth.RegenerateAPIKey)
			r.Get("/auth/notifications", h.Auth.GetNotifications)
			r.Put("/auth/notifications", h.Auth.UpdateNotifications)

			// Dashboard
			r.Get("/dashboard", h.Dashboard.Dashboard)

			// Forms
			r.Get("/forms", h.Forms.List)
			r.Post("/forms", h.Forms.Create)
			r.Get("/forms/{formId}", h.Forms.Get)
			r.Patch("/forms/{formId}", h.Forms.Update)
			r.Delete("/forms/{formId}", h.Forms.Delete)
			r.Get("/forms/{formId}/analytics", h.Dashboard.FormAnalytics)
			r.Get("/forms/{formId}/live", h.Live.Stream)

			// Submissions
			r.Get("/submissions/form/{formId}", h.Submissions.List)
			r.Get("/submissions/form/{formId}/export.csv", h.Submissions.ExportCSV)
			r.Get("/submissions/{subId}/rows", h.Submissions.Rows)
			r.Get("/submissions/{subId}/pdf", h.Submissions.ExportPDF)
			r.Put("/submissions/{subId}/status", h.Submissions.UpdateStatus)
			r.Delete("/submissions/{subId}", h.Submissions.Delete)

			// Search
			r.Post("/search", h.Search.Search)

			// Webhooks
			r.Get("/webhooks", h.Webhooks.List)
			r.Post("/webhooks", h.Webhooks.Create)
			r.Put("/webhooks/{webhookId}", h.Webhooks.Update)
			r.Delete("/webhooks/{webhookId}", h.Webhooks.Delete)

			// Integrations
			r.Get("/integrations", h.Integration.List)
			r.Post("/integrations", h.Integration.Create)
			r.Put("/integrations/{integrationId}", h.Integration.Update)
			r.Delete("/integrations/{integrationId}", h.Integration.Delete)

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(handler.RequireAdmin)
				r.Get("/admin/indexes", h.Admin.ListIndexes)
				r.Post("/admin/compact", h.Admin.Compact)
			})
		})
	})

	return r
}
