// Package server assembles repositories, services, background workers and
// the HTTP router into one runnable unit.
package server

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/parisxmas/formdesk/internal/config"
	"github.com/parisxmas/formdesk/internal/db"
	"github.com/parisxmas/formdesk/internal/events"
	"github.com/parisxmas/formdesk/internal/handler"
	"github.com/parisxmas/formdesk/internal/live"
	"github.com/parisxmas/formdesk/internal/repository"
	"github.com/parisxmas/formdesk/internal/router"
	"github.com/parisxmas/formdesk/internal/service"
	"github.com/parisxmas/formdesk/internal/webhook"
)

type Server struct {
	Handler http.Handler

	db         *sql.DB
	hub        *live.Hub
	dispatcher *webhook.Dispatcher
	log        zerolog.Logger
}

// New opens the database, seeds the admin account when configured and
// starts the webhook workers.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	conn, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := repository.NewUserRepo(conn)
	formRepo := repository.NewFormRepo(conn)
	subRepo := repository.NewSubmissionRepo(conn)
	hookRepo := repository.NewWebhookRepo(conn)
	integrationRepo := repository.NewIntegrationRepo(conn)
	maintenanceRepo := repository.NewMaintenanceRepo(conn)

	// Background fan-out
	dispatcher := webhook.New(hookRepo, log, webhook.Options{
		Workers:   cfg.WebhookWorkers,
		QueueSize: cfg.WebhookQueue,
		Timeout:   cfg.WebhookTimeout,
	})
	hub := live.NewHub(log, cfg.CORSOrigin)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret)
	formSvc := service.NewFormService(formRepo)
	subSvc := service.NewSubmissionService(subRepo, formRepo, events.Multi{dispatcher, hub})
	analyticsSvc := service.NewAnalyticsService(formRepo, subRepo)
	hookSvc := service.NewWebhookService(hookRepo, formRepo)
	integrationSvc := service.NewIntegrationService(integrationRepo)

	if cfg.AdminEmail != "" {
		if err := authSvc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPass); err != nil {
			log.Warn().Err(err).Str("email", cfg.AdminEmail).Msg("failed to seed admin")
		} else {
			log.Info().Str("email", cfg.AdminEmail).Msg("admin account ready")
		}
	}

	r := router.New(router.Options{
		JWTSecret:  cfg.JWTSecret,
		APIKeys:    authSvc.ClaimsForAPIKey,
		CORSOrigin: cfg.CORSOrigin,
		Log:        log,
	}, router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Forms:       handler.NewFormHandler(formSvc),
		Public:      handler.NewPublicHandler(formSvc, subSvc),
		Submissions: handler.NewSubmissionHandler(subSvc),
		Dashboard:   handler.NewDashboardHandler(analyticsSvc),
		Webhooks:    handler.NewWebhookHandler(hookSvc),
		Integration: handler.NewIntegrationHandler(integrationSvc),
		Live:        handler.NewLiveHandler(formSvc, hub),
		Search:      handler.NewSearchHandler(subSvc),
		Admin:       handler.NewAdminHandler(maintenanceRepo),
	})

	return &Server{Handler: r, db: conn, hub: hub, dispatcher: dispatcher, log: log}, nil
}

// Close disconnects live clients, drains pending webhook deliveries and
// closes the database, in that order.
func (s *Server) Close() error {
	s.hub.Close()
	s.dispatcher.Close()
	return s.db.Close()
}
