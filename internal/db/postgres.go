package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Options identifies the PostgreSQL database holding snapshots and the
// submission ledger.
type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN renders the lib/pq connection string.
func (o Options) DSN() string {
	port := o.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		o.Host, port, o.User, o.Password, o.Name,
	)
}

// Connect opens an instrumented PostgreSQL pool and pings it.
func Connect(ctx context.Context, opts Options, logger zerolog.Logger) (*sql.DB, error) {
	if opts.Host == "" || opts.User == "" || opts.Password == "" || opts.Name == "" {
		return nil, fmt.Errorf("missing required database settings")
	}

	attrs := otelsql.WithAttributes(
		semconv.DBSystemPostgreSQL,
		semconv.DBName(opts.Name),
	)

	db, err := otelsql.Open("postgres", opts.DSN(), attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(db, attrs); err != nil {
		logger.Warn().Err(err).Msg("failed to register database stats metrics")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info().Str("host", opts.Host).Str("database", opts.Name).Msg("✓ Connected to PostgreSQL (OpenTelemetry enabled)")
	return db, nil
}
