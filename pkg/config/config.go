package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Rate limiter backing stores.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	AppEnv       string `envconfig:"APP_ENV" default:"local"`
	Port         int    `envconfig:"PORT" default:"8080"`
	SentryDSN    string `envconfig:"SENTRY_DSN"`
	AllowOrigins string `envconfig:"ALLOW_ORIGINS"`
	// TrustProxy takes the client IP from X-Forwarded-For instead of the
	// socket peer. Only enable behind a proxy that overwrites the header.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`

	TMDB struct {
		AccessToken    string        `envconfig:"TMDB_ACCESS_TOKEN"`
		BaseURL        string        `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
		Timeout        time.Duration `envconfig:"TMDB_TIMEOUT" default:"10s"`
		RPS            float64       `envconfig:"TMDB_RPS" default:"0"`
		TrailersStrict bool          `envconfig:"TRAILERS_STRICT" default:"false"`
	}
	RateLimit struct {
		Store         string        `envconfig:"RATE_LIMIT_STORE" default:"memory"`
		SearchLimit   int           `envconfig:"SEARCH_RATE_LIMIT" default:"30"`
		SearchWindow  time.Duration `envconfig:"SEARCH_RATE_WINDOW" default:"1m"`
		DetailsLimit  int           `envconfig:"DETAILS_RATE_LIMIT" default:"60"`
		DetailsWindow time.Duration `envconfig:"DETAILS_RATE_WINDOW" default:"1m"`
	}
	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}
	DB struct {
		Name      string `envconfig:"DB_NAME"`
		Host      string `envconfig:"DB_HOST"`
		Port      int    `envconfig:"DB_PORT" default:"5432"`
		User      string `envconfig:"DB_USER"`
		Pass      string `envconfig:"DB_PASS"`
		EnableSSL bool   `envconfig:"ENABLE_SSL"`
	}
}

func LoadConfig() (*Config, error) {
	// load default .env file, ignore the error
	_ = godotenv.Load()

	cfg := new(Config)
	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("load config error: %v", err)
	}

	switch cfg.RateLimit.Store {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return nil, fmt.Errorf("load config error: unknown rate limit store %q", cfg.RateLimit.Store)
	}

	return cfg, nil
}
