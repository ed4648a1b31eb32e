package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/config"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/db"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/handoff"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/logging"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/preauth"
)

func main() {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge handoff snapshots and ledger rows past their retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return run(ctx)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum run time")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	logger.Info().
		Dur("handoff_retention", cfg.HandoffRetention).
		Dur("ledger_retention", cfg.LedgerRetention).
		Msg("Cleanup job starting")

	if !cfg.DatabaseConfigured() {
		return fmt.Errorf("cleanup needs a database: set DB_HOST, DB_USER, DB_PASSWORD and DB_NAME")
	}

	conn, err := db.Connect(ctx, db.Options{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	store := handoff.NewStore(handoff.NewRepository(conn), logger, nil)
	snapshots, err := store.Purge(ctx, cfg.HandoffRetention)
	if err != nil {
		return fmt.Errorf("snapshot cleanup failed: %w", err)
	}
	logger.Info().Int64("deleted", snapshots).Msg("✓ Handoff snapshots purged")

	ledger := preauth.NewRepository(conn)
	submissions, err := ledger.PurgeBefore(ctx, time.Now().Add(-cfg.LedgerRetention))
	if err != nil {
		return fmt.Errorf("ledger cleanup failed: %w", err)
	}
	logger.Info().Int64("deleted", submissions).Msg("✓ Ledger rows purged")

	logger.Info().Msg("Cleanup job finished")
	return nil
}
