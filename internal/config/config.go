// Package config reads the process configuration from the environment.
// Missing credentials are a startup failure: the process must not come up
// half-configured.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the process needs from the environment.
type Config struct {
	// BotToken is the Telegram bot credential. Required.
	BotToken string
	// DatabaseURL is the Postgres DSN the complaint tables live in. Required.
	DatabaseURL string
	// RedisAddr is the Redis address for draft storage. When empty, drafts are
	// kept in memory and do not survive a restart.
	RedisAddr     string
	RedisPassword string
	// Port is the HTTP listen port for the health/proxy/reply endpoints.
	Port string
	// RelayInterval is the pause between operator-reply polling cycles.
	RelayInterval time.Duration
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Port:          os.Getenv("PORT"),
		RelayInterval: 5 * time.Second,
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if v := os.Getenv("RELAY_INTERVAL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid RELAY_INTERVAL_SECONDS: %q", v)
		}
		cfg.RelayInterval = time.Duration(secs) * time.Second
	}

	return cfg, nil
}
