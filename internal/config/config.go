// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// DBDriver is the database/sql driver name, sqlite3 or pgx.
	DBDriver      string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBURL         string `env:"DB_URL" envDefault:"file:cardtable.db?_foreign_keys=on"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"./db/migrations"`

	// RulesDir is an optional directory of extra YAML rule files.
	RulesDir string `env:"RULES_DIR"`

	SaveInterval time.Duration `env:"SAVE_INTERVAL" envDefault:"30s"`
	CleanupAfter time.Duration `env:"CLEANUP_AFTER" envDefault:"24h"`
	RateLimit    int           `env:"RATE_LIMIT" envDefault:"10"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.DBDriver {
	case "sqlite3", "pgx":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.RateLimit <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT must be positive, got %d", cfg.RateLimit)
	}
	return cfg, nil
}

// Dialect returns the goose dialect matching the configured driver.
func (c Config) Dialect() string {
	if c.DBDriver == "pgx" {
		return "postgres"
	}
	return "sqlite3"
}
