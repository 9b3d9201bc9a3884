// Package e2e holds the end-to-end checks run against a live INVENT
// deployment. The checks skip unless INVENT_E2E_URL and the credentials are
// set, in the environment or in a .env file.
package e2e

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/inventhq/invent/pkg/client"
)

// Config locates the deployment under test.
type Config struct {
	URL       string `env:"INVENT_E2E_URL"`
	User      string `env:"INVENT_E2E_USER"`
	Password  string `env:"INVENT_E2E_PASSWORD"`
	LoginPath string `env:"INVENT_E2E_LOGIN_PATH" envDefault:"/api/api-token-auth/"`
	// Country whose inventory must not be empty.
	Country int `env:"INVENT_E2E_COUNTRY" envDefault:"1"`
}

// Enabled reports whether a deployment and credentials are configured.
func (c *Config) Enabled() bool {
	return c.URL != "" && c.User != "" && c.Password != ""
}

// LoadConfig reads the configuration. A .env file in dir is applied first
// without overriding the environment; a missing file is fine.
func LoadConfig(dir string) (*Config, error) {
	path := ".env"
	if dir != "" {
		path = dir + "/.env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = client.DefaultLoginPath
	}
	return cfg, nil
}
