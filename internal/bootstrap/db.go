package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/craftcode/landing-backend/config"
	"github.com/craftcode/landing-backend/internal/storage/postgres"
)

type DBOptions struct {
	PingTO time.Duration
}

// OpenDB connects the direct Postgres backend. It returns nil, nil when no
// database settings are present.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig, opt DBOptions) (*sql.DB, error) {
	if postgres.DSN(cfg) == "" {
		return nil, nil
	}
	if opt.PingTO == 0 {
		opt.PingTO = 2 * time.Second
	}

	db, err := postgres.NewConnection(ctx, cfg, opt.PingTO)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return db, nil
}
