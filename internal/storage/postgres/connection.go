package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/craftcode/landing-backend/config"
)

const (
	DriverPgx = "pgx"
	DriverPQ  = "postgres"
)

// NewConnection opens a pool with the configured driver and pings it
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig, pingTimeout time.Duration) (*sql.DB, error) {
	dsn := DSN(cfg)
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverPgx
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
