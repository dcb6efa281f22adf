// Package config loads engine configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration.
type Config struct {
	DBPath       string `env:"WILDBOND_DB_PATH" envDefault:"data/wildbond.db"`
	APIPort      int    `env:"WILDBOND_API_PORT" envDefault:"8080"`
	AdminKey     string `env:"WILDBOND_ADMIN_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	LogLevel     string `env:"WILDBOND_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return &cfg, nil
}
