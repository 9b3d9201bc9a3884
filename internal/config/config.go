package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Upstream INVENT API
	InventAPIURL    string        `env:"INVENT_API_URL" envDefault:"http://localhost:8000"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	// Client-side throttle towards the API; 0 disables it
	UpstreamRPS   float64 `env:"UPSTREAM_RPS" envDefault:"0"`
	UpstreamBurst int     `env:"UPSTREAM_BURST" envDefault:"10"`

	// Redis (page size preferences). Empty keeps preferences in memory.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// LOG_FILE tees logs into a rotated file
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Rate limiting, per user when signed in and per IP otherwise
	RateLimitPerSecond       int `env:"RATE_LIMIT_PER_SECOND" envDefault:"50"`
	RateLimitBurst           int `env:"RATE_LIMIT_BURST" envDefault:"100"`
	UnauthRateLimitPerSecond int `env:"UNAUTH_RATE_LIMIT_PER_SECOND" envDefault:"10"`
	UnauthRateLimitBurst     int `env:"UNAUTH_RATE_LIMIT_BURST" envDefault:"20"`
	// Writes and uploads, 0 disables the extra limit
	WriteRateLimitPerSecond int `env:"WRITE_RATE_LIMIT_PER_SECOND" envDefault:"5"`
	WriteRateLimitBurst     int `env:"WRITE_RATE_LIMIT_BURST" envDefault:"10"`

	// Project structure cache refresh, standard 5-field cron spec
	StructureRefreshCron string `env:"STRUCTURE_REFRESH_CRON" envDefault:"*/15 * * * *"`

	// Optional YAML file overriding import column headers
	ImportHeadersPath string `env:"IMPORT_HEADERS_PATH"`
}

// Load reads the configuration from the environment. Variables from a .env
// file in the working directory are applied first without overriding the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
