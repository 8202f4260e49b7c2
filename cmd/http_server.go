package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/internal/auth"
	"github.com/frahmantamala/herasat/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start HTTP server",
	Long:    `Start the operator HTTP API: health, login, backup download and restore upload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	App         *app.App
	Router      *chi.Mux
	AuthHandler *auth.Handler
	Logger      *slog.Logger
}

func startHTTPServer() error {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	rest.RegisterAllRoutes(deps.Router, deps.App, deps.AuthHandler, deps.Logger)

	cfg := deps.App.Config.Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	var serveErr error
	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
	}

	if err := deps.App.Close(ctx); err != nil {
		deps.Logger.Error("Database close error", "error", err)
	}
	deps.Logger.Info("Server stopped")
	return serveErr
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	a, err := openApp(ctx)
	if err != nil {
		return nil, err
	}

	secret := a.Config.Security.JWTSecret
	if secret == "" {
		if secret, err = auth.GenerateRandomToken(); err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		a.Logger.Warn("security.jwt_secret not set; tokens will not survive a restart")
	}

	tokens := auth.NewJWTTokenGenerator(secret, a.Config.Security.AccessTokenDuration)
	authHandler := auth.NewHandler(auth.NewService(a.Users, tokens, a.Logger), a.Logger)

	return &Dependencies{
		App:         a,
		Router:      chi.NewRouter(),
		AuthHandler: authHandler,
		Logger:      a.Logger,
	}, nil
}
