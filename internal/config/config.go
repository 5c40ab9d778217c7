package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "pulsenet-development-secret-do-not-use"

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	APIBaseURL string        `mapstructure:"API_BASE_URL"`
	APITimeout time.Duration `mapstructure:"API_TIMEOUT"`

	DraftStore  string `mapstructure:"DRAFT_STORE"`
	DraftFile   string `mapstructure:"DRAFT_FILE"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	AuthMode        string        `mapstructure:"AUTH_MODE"`
	SupabaseURL     string        `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey string        `mapstructure:"SUPABASE_ANON_KEY"`
	AuthJWTSecret   string        `mapstructure:"AUTH_JWT_SECRET"`
	CookieSecure    bool          `mapstructure:"COOKIE_SECURE"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`

	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	DefaultLanguage string   `mapstructure:"DEFAULT_LANGUAGE"`
}

var keys = []string{
	"PORT", "ENV", "GIN_MODE", "LOG_LEVEL", "LOG_FILE",
	"API_BASE_URL", "API_TIMEOUT",
	"DRAFT_STORE", "DRAFT_FILE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"AUTH_MODE", "SUPABASE_URL", "SUPABASE_ANON_KEY", "AUTH_JWT_SECRET", "COOKIE_SECURE", "SESSION_TTL",
	"CORS_ORIGINS", "DEFAULT_LANGUAGE",
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("DRAFT_STORE", "file")
	v.SetDefault("DRAFT_FILE", "data/drafts.json")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("AUTH_MODE", "local")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("SESSION_TTL", "1h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:8080")
	v.SetDefault("DEFAULT_LANGUAGE", "en")

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	cfg.DraftStore = strings.ToLower(strings.TrimSpace(cfg.DraftStore))
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))

	if cfg.IsDev() && cfg.AuthMode == "local" && cfg.AuthJWTSecret == "" {
		cfg.AuthJWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.DraftStore {
	case "memory", "file":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DRAFT_STORE=postgres")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when DRAFT_STORE=redis")
		}
	default:
		return fmt.Errorf("DRAFT_STORE must be memory, file, postgres or redis, got %q", c.DraftStore)
	}
	if c.DraftStore == "file" && c.DraftFile == "" {
		return fmt.Errorf("DRAFT_FILE is required when DRAFT_STORE=file")
	}

	switch c.AuthMode {
	case "local":
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required when AUTH_MODE=supabase")
		}
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE=supabase")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be local or supabase, got %q", c.AuthMode)
	}

	if c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required outside development")
	}
	if c.IsProduction() && c.AuthJWTSecret == devJWTSecret {
		return fmt.Errorf("AUTH_JWT_SECRET must not be the development secret in production")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
