// Package db opens the process-wide database handle and runs the idempotent
// startup migration before the server takes traffic.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"mercamaps/internal/config"
	"mercamaps/internal/logging"
)

// Open connects with the configured driver, applies pool limits and verifies
// the connection with a bounded ping. The caller owns the returned handle.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(cfg)
	}

	d, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open failed: %w", err)
	}

	d.SetMaxOpenConns(10)
	d.SetMaxIdleConns(5)
	d.SetConnMaxLifetime(30 * time.Minute)
	d.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("db: ping failed: %w", err)
	}

	// Log where we connected without leaking the password or full DSN.
	logging.Info().
		Str("driver", cfg.Driver).
		Str("host", cfg.Host).
		Str("db", cfg.Name).
		Msg("db: connected")

	return d, nil
}

func buildDSN(cfg config.DatabaseConfig) string {
	if cfg.Driver == "sqlite3" {
		if cfg.Name != "" {
			return cfg.Name
		}
		return "merca_maps.db"
	}

	// lib/pq key=value format.
	parts := []string{
		"host=" + cfg.Host,
		"port=" + cfg.Port,
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
		"sslmode=" + cfg.SSLMode,
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}
	return strings.Join(parts, " ")
}
