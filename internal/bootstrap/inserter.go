package bootstrap

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/craftcode/landing-backend/config"
	"github.com/craftcode/landing-backend/internal/contact/notify"
	"github.com/craftcode/landing-backend/internal/contact/persistence"
	"github.com/craftcode/landing-backend/internal/contact/service"
	"github.com/craftcode/landing-backend/internal/logging"
	"github.com/craftcode/landing-backend/internal/storage/postgres"
)

const (
	BackendSQL  = "postgres"
	BackendREST = "rest"
	BackendNone = "none"
)

// Backends groups the connections the persistence adapter was built from.
// DB and Redis may be nil.
type Backends struct {
	Name      string
	Inserter  service.Inserter
	DB        *sql.DB
	Redis     *redis.Client
	Publisher *notify.Publisher
}

// Close releases the underlying connections
func (b *Backends) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.DB != nil {
		_ = b.DB.Close()
	}
}

// BuildInserter picks the direct Postgres store when database settings are present,
// otherwise the hosted REST backend. The REST client reports NotConfigured on insert
// when its settings are missing. With Redis configured, successful inserts are published.
func BuildInserter(ctx context.Context, cfg *config.Config) (*Backends, error) {
	logger := logging.NewLogger(ctx)
	b := &Backends{}

	if cfg.UseDatabase() {
		db, err := OpenDB(ctx, &cfg.Database, DBOptions{})
		if err != nil {
			return nil, err
		}
		b.DB = db
		b.Name = BackendSQL
		b.Inserter = postgres.NewSubmissionStore(db, cfg.Supabase.Table, cfg.Supabase.Timeout)
	} else {
		rest := persistence.NewRESTClient(persistence.Settings{
			URL:     cfg.Supabase.URL,
			APIKey:  cfg.Supabase.AnonKey,
			Table:   cfg.Supabase.Table,
			Timeout: cfg.Supabase.Timeout,
		})
		b.Name = BackendREST
		if !rest.Configured() {
			b.Name = BackendNone
			logger.LogWarnf("bootstrap", "persistence settings missing; submissions will fail as not configured")
		}
		b.Inserter = rest
	}

	client, err := OpenRedis(ctx, cfg.Redis)
	if err != nil {
		// Notifications are optional; submissions still go through.
		logger.LogWarnf("bootstrap", "lead notifications disabled: %v", err)
	}
	if client != nil {
		b.Redis = client
		b.Publisher = notify.NewPublisher(client, cfg.Redis.Channel)
		b.Inserter = notify.NewInserter(b.Inserter, b.Publisher)
	}

	logger.LogInfof("bootstrap", "persistence backend=%s notifications=%t", b.Name, b.Publisher != nil)
	return b, nil
}
