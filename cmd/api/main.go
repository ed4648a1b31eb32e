package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/auth"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/config"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/db"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/discharge"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/handoff"
	apphttp "github.com/WailSalutem-Health-Care/preauth-service/internal/http"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/logging"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/preauth"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "preauth-service",
		Short: "Pre-authorization and discharge planning API",
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("preauth-service starting")

	// Telemetry
	provider, err := telemetry.InitProvider(ctx, telemetry.Config{
		ServiceName:      cfg.OTELServiceName,
		ServiceNamespace: cfg.OTELServiceNamespace,
		ServiceVersion:   cfg.OTELServiceVersion,
		Environment:      cfg.Env,
		OTLPEndpoint:     cfg.OTLPEndpoint,
		TracesSampler:    cfg.OTELTracesSampler,
		MetricsInterval:  cfg.OTELMetricsInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		provider.Shutdown(shutdownCtx)
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize metrics, continuing without them")
		metrics = nil
	}

	// Storage
	handoffRepo, ledger, conn, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}
	store := handoff.NewStore(handoffRepo, logger, metrics)

	// Events
	var publisher *messaging.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = messaging.NewPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("RabbitMQ unavailable, events will not be published")
			publisher = nil
		}
	} else {
		logger.Info().Msg("RABBITMQ_URL not set, events will not be published")
	}
	defer publisher.Close()

	// Upstreams
	coreClient, err := upstream.NewClient(cfg.CoreAPIBaseURL, cfg.UpstreamTimeout, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create core API client: %w", err)
	}
	dischargeClient, err := upstream.NewClient(cfg.DischargeAPIBaseURL, cfg.UpstreamTimeout, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create discharge API client: %w", err)
	}

	// Auth
	jwks, err := auth.NewJWKS(ctx, cfg.AuthJWKSURL, 0, logger)
	if err != nil {
		return fmt.Errorf("failed to load JWKS: %w", err)
	}
	defer jwks.Close()
	logger.Info().Str("jwks_url", cfg.AuthJWKSURL).Msg("✓ JWKS loaded")

	verifier := auth.NewVerifier(auth.Config{
		Issuer:   cfg.AuthIssuer,
		JWKSURL:  cfg.AuthJWKSURL,
		Audience: cfg.AuthAudience,
	}, jwks)

	perms, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	router := apphttp.SetupRouter(apphttp.Dependencies{
		Verifier:       verifier,
		Permissions:    perms,
		Discharge:      discharge.NewService(upstream.NewPlannerClient(dischargeClient), store, publisher, metrics, logger),
		Preauth:        preauth.NewOrchestrator(upstream.NewClaimsClient(coreClient), store, ledger, publisher, metrics, logger),
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		ServiceName:    cfg.OTELServiceName,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("✓ HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openStorage connects to PostgreSQL when it is configured and falls back
// to in-memory repositories otherwise.
func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (handoff.RepositoryInterface, preauth.RepositoryInterface, *sql.DB, error) {
	if !cfg.DatabaseConfigured() {
		logger.Warn().Msg("database not configured, keeping snapshots and submissions in memory")
		return handoff.NewMemoryRepository(), preauth.NewMemoryRepository(), nil, nil
	}

	conn, err := db.Connect(ctx, db.Options{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.EnsureSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	logger.Info().Msg("✓ Database schema ready")

	return handoff.NewRepository(conn), preauth.NewRepository(conn), conn, nil
}
