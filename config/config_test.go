package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"PORT", "CORS_ALLOWED_ORIGINS",
	"SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL", "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY",
	"CONTACT_TABLE", "PERSISTENCE_TIMEOUT",
	"DB_DRIVER", "DB_DSN", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_CHANNEL",
	"CONTACT_EMAIL", "CONTACT_RESET_DELAY", "SESSION_TTL",
	"APP_ENV", "LOG_LEVEL", "APP_VERSION",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "contact_submissions", cfg.Supabase.Table)
	assert.Equal(t, 3*time.Second, cfg.Contact.ResetDelay)
	assert.Equal(t, 30*time.Minute, cfg.Contact.SessionTTL)
	assert.Equal(t, "craftcode83@gmail.com", cfg.Contact.Email)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.False(t, cfg.PersistenceConfigured())
	assert.False(t, cfg.UseDatabase())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("NEXT_PUBLIC_SUPABASE_URL", "https://next.supabase.co")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("NEXT_PUBLIC_SUPABASE_ANON_KEY", "anon")
	t.Setenv("CONTACT_RESET_DELAY", "1500")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://craftcode.dev, http://localhost:3000,")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://abc.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "anon", cfg.Supabase.AnonKey)
	assert.True(t, cfg.PersistenceConfigured())
	assert.Equal(t, 1500*time.Millisecond, cfg.Contact.ResetDelay)
	assert.Equal(t, 5*time.Minute, cfg.Contact.SessionTTL)
	assert.Equal(t, []string{"https://craftcode.dev", "http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
supabase:
  url: https://file.supabase.co
  anon_key: file-key
  timeout: 2s
contact:
  reset_delay: 4s
redis:
  addr: localhost:6379
`), 0o600))
	t.Setenv("SUPABASE_ANON_KEY", "env-key")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "https://file.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "env-key", cfg.Supabase.AnonKey)
	assert.Equal(t, 2*time.Second, cfg.Supabase.Timeout)
	assert.Equal(t, 4*time.Second, cfg.Contact.ResetDelay)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "contact:submissions", cfg.Redis.Channel)
}

func TestLoadFrom_FileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.yaml")
	_, err := LoadFrom(missing)
	require.NoError(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("server:\n  hostname: x\n"), 0o600))
	_, err = LoadFrom(unknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parsing")

	comments := filepath.Join(dir, "comments.yaml")
	require.NoError(t, os.WriteFile(comments, []byte("# nothing here\n"), 0o600))
	_, err = LoadFrom(comments)
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := Default()
	bad.Database.Driver = "mysql"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Contact.ResetDelay = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Server.Port = ""
	assert.EqualError(t, bad.Validate(), "PORT is required")
}

func TestUseDatabase(t *testing.T) {
	cfg := Default()
	cfg.Database.Host = "db.internal"
	assert.True(t, cfg.UseDatabase())

	cfg = Default()
	cfg.Database.DSN = "postgres://u:p@h/db"
	assert.True(t, cfg.UseDatabase())
}
