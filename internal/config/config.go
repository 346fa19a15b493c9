package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                  string `env:"PORT" envDefault:"8080"`
	AllowedOrigin         string `env:"ALLOWED_ORIGIN" envDefault:"http://127.0.0.1:3000"`
	DatabaseURL           string `env:"DATABASE_URL"`
	RedisAddr             string `env:"REDIS_ADDR"`
	RedisPassword         string `env:"REDIS_PASSWORD"`
	RedisDB               int    `env:"REDIS_DB" envDefault:"0"`
	AuthSecret            string `env:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"480"`
	LowStockThreshold     int    `env:"LOW_STOCK_THRESHOLD" envDefault:"5"`
	InsightsTTLSeconds    int    `env:"INSIGHTS_TTL_SECONDS" envDefault:"60"`
	LogFormat             string `env:"LOG_FORMAT" envDefault:"console"`
	SeedDemoData          bool   `env:"SEED_DEMO_DATA" envDefault:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.InsightsTTLSeconds < 1 {
		cfg.InsightsTTLSeconds = 60
	}
	if cfg.LowStockThreshold < 1 {
		cfg.LowStockThreshold = 5
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
