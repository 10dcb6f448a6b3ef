package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Contact  ContactConfig  `yaml:"contact"`
	App      AppConfig      `yaml:"app"`
}

type ServerConfig struct {
	Port               string   `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// SupabaseConfig holds the hosted REST backend settings. Both values empty is valid:
// submissions then fail with a not-configured error instead of the process refusing to start.
type SupabaseConfig struct {
	URL     string        `yaml:"url"`
	AnonKey string        `yaml:"anon_key"`
	Table   string        `yaml:"table"`
	Timeout time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "pgx" or "postgres"
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type ContactConfig struct {
	Email      string        `yaml:"email"`
	ResetDelay time.Duration `yaml:"reset_delay"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type AppConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	Version     string `yaml:"version"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Supabase: SupabaseConfig{
			Table:   "contact_submissions",
			Timeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  "pgx",
			Port:    5432,
			SSLMode: "require",
		},
		Redis: RedisConfig{
			Channel: "contact:submissions",
		},
		Contact: ContactConfig{
			Email:      "craftcode83@gmail.com",
			ResetDelay: 3 * time.Second,
			SessionTTL: 30 * time.Minute,
		},
		App: AppConfig{
			Environment: "development",
			LogLevel:    "info",
			Version:     "1.0.0",
		},
	}
}

// Load reads .env (if present), the optional CONFIG_FILE, then environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load without the .env step; path may be empty
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// Comment-only files decode to EOF.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", c.Server.CORSAllowedOrigins)

	c.Supabase.URL = getEnv("SUPABASE_URL", getEnv("NEXT_PUBLIC_SUPABASE_URL", c.Supabase.URL))
	c.Supabase.AnonKey = getEnv("SUPABASE_ANON_KEY", getEnv("NEXT_PUBLIC_SUPABASE_ANON_KEY", c.Supabase.AnonKey))
	c.Supabase.Table = getEnv("CONTACT_TABLE", c.Supabase.Table)
	c.Supabase.Timeout = getEnvAsDuration("PERSISTENCE_TIMEOUT", c.Supabase.Timeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Channel = getEnv("REDIS_CHANNEL", c.Redis.Channel)

	c.Contact.Email = getEnv("CONTACT_EMAIL", c.Contact.Email)
	c.Contact.ResetDelay = getEnvAsDuration("CONTACT_RESET_DELAY", c.Contact.ResetDelay)
	c.Contact.SessionTTL = getEnvAsDuration("SESSION_TTL", c.Contact.SessionTTL)

	c.App.Environment = getEnv("APP_ENV", c.App.Environment)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.Version = getEnv("APP_VERSION", c.App.Version)
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be pgx or postgres, got %q", c.Database.Driver)
	}

	if c.Contact.ResetDelay <= 0 {
		return fmt.Errorf("CONTACT_RESET_DELAY must be positive")
	}

	if c.Contact.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	return nil
}

// PersistenceConfigured reports whether the REST backend has both settings
func (c *Config) PersistenceConfigured() bool {
	return strings.TrimSpace(c.Supabase.URL) != "" && strings.TrimSpace(c.Supabase.AnonKey) != ""
}

// UseDatabase reports whether submissions go straight to Postgres
func (c *Config) UseDatabase() bool {
	return c.Database.DSN != "" || c.Database.Host != ""
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		// Bare numbers are milliseconds.
		ms, convErr := strconv.Atoi(valueStr)
		if convErr != nil {
			log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
			return defaultValue
		}
		return time.Duration(ms) * time.Millisecond
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
