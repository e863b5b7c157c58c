// Package store implements the PostgreSQL persistence layer of the vault
// server. Each repository owns one table family and exposes domain-level
// operations; read-then-write sequences that must not race (lockout
// counters, version numbering, view caps, session rotation) are executed as
// single atomic statements or inside one transaction so that concurrent
// requests serialize through the database rather than in process memory.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vaultkeeper/vaultkeeper/internal/config"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
)

// DB wraps the shared *sql.DB handle together with the logger used for
// connection-level diagnostics.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// NewConnectPostgres opens and pings a PostgreSQL connection via the pgx
// stdlib driver.
func NewConnectPostgres(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		log.Err(err).Msg("error occurred during database connection")
		return nil, fmt.Errorf("error occurred during database connection: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(4)

	if err := conn.PingContext(ctx); err != nil {
		log.Err(err).Msg("error connecting database (ping)")
		return nil, err
	}
	log.Info().Msg("connected to database successfully")

	return &DB{DB: conn, logger: log}, nil
}

// postgresError extracts the PostgreSQL error code from a driver error, or
// returns the empty string for non-Postgres errors.
func postgresError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}
