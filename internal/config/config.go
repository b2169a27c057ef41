// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmtable/encounter-backend/internal/apperr"
)

type Config struct {
	Addr          string `env:"ADDR" envDefault:":8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	JWTSecret     string `env:"JWT_SECRET,required"`
	ImportBaseURL string `env:"IMPORT_BASE_URL"`
	ImportLabel   string `env:"IMPORT_LABEL" envDefault:"D&D Beyond"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env when present, then parses the environment. Missing
// required settings fail fast.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, apperr.Wrap(err, "parse environment")
	}
	return &cfg, nil
}
