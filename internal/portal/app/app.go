package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/pointerhq/portal/internal/portal/http"
	"github.com/pointerhq/portal/internal/portal/idp/keycloak"
	"github.com/pointerhq/portal/internal/portal/mail"
	"github.com/pointerhq/portal/internal/portal/service"
	"github.com/pointerhq/portal/internal/portal/store"
	"github.com/pointerhq/portal/internal/portal/store/drivers/sqlite"
	"github.com/pointerhq/portal/pkg/jwtx"
	"github.com/pointerhq/portal/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the portal backend together: store, identity provider
// client, mailer, services and the HTTP surface.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	keys     *jwtx.RemoteKeySet
	verifier jwtx.Verifier
	idp      *keycloak.Client
	mailer   mail.Sink

	userService         *service.UserService
	announcementService *service.AnnouncementService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initIdentityProvider()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("portal starting", "port", app.cfg.Port, "version", BuildVersion)

	// Warm the verification keys so readiness reflects provider connectivity.
	// The server still starts if the provider is briefly down; keys are
	// refetched on demand.
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.KeycloakTimeout)
	if err := app.keys.Refresh(ctx); err != nil {
		app.logger.Warn("initial JWKS fetch failed, will retry on demand", "error", err)
	}
	cancel()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down portal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("portal stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initIdentityProvider wires the Keycloak admin client and the token
// verifier backed by the realm's JWKS endpoint.
func (app *Application) initIdentityProvider() {
	app.idp = keycloak.New(keycloak.Config{
		BaseURL:      app.cfg.KeycloakBaseURL,
		Realm:        app.cfg.KeycloakRealm,
		ClientID:     app.cfg.KeycloakClientID,
		ClientSecret: app.cfg.KeycloakClientSecret,
		Timeout:      app.cfg.KeycloakTimeout,
	})

	jwksURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs",
		app.cfg.KeycloakBaseURL, app.cfg.KeycloakRealm)
	issuer := fmt.Sprintf("%s/realms/%s", app.cfg.KeycloakBaseURL, app.cfg.KeycloakRealm)

	app.keys = jwtx.NewRemoteKeySet(jwksURL, &http.Client{Timeout: app.cfg.KeycloakTimeout})
	app.verifier = jwtx.NewVerifierRS256(app.keys, issuer)

	app.mailer = &mail.SMTPMailer{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		From:     app.cfg.SMTPFrom,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.userService = &service.UserService{
		Store: app.db,
		IDP:   app.idp,
		Roles: service.RoleResolver{
			PrivilegedSectors: app.cfg.PrivilegedSectors,
			AdminJobTitle:     app.cfg.AdminJobTitle,
		},
		Mail: app.mailer,
	}

	app.announcementService = &service.AnnouncementService{Store: app.db}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)
	router.UserService = app.userService
	router.AnnouncementService = app.announcementService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
