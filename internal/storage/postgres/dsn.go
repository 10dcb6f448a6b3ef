package postgres

import (
	"fmt"

	"github.com/craftcode/landing-backend/config"
)

// DSN returns cfg.DSN when set, otherwise builds a key/value connection string.
// An empty result means no database is configured.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	if cfg.Host == "" {
		return ""
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "require"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode,
	)
}
