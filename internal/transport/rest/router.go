package rest

import (
	"log/slog"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/internal/auth"
	"github.com/frahmantamala/herasat/internal/transport"
	"github.com/frahmantamala/herasat/internal/transport/middleware"
	"github.com/frahmantamala/herasat/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterAllRoutes mounts the operator API under /api/v1.
func RegisterAllRoutes(router chi.Router, a *app.App, authHandler *auth.Handler, logger *slog.Logger) {
	base := transport.NewBaseHandler(logger)
	healthHandler := NewHealthHandler(base, a.Engine, a.Persistence)
	backupHandler := NewBackupHandler(base, a.Persistence, a.Config.Server.MaxUploadBytes)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)
			pr.Use(middleware.RequireRole(logger, user.RoleAdmin))

			pr.Get("/backup", backupHandler.Download)
			pr.Post("/restore", backupHandler.Restore)
		})
	})
}
