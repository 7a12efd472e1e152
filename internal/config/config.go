package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	Port               string `env:"PORT" default:"8080"`
	DatabaseURL        string `env:"DATABASE_URL"`
	RedisURL           string `env:"REDIS_URL"`
	MetaClientID       string `env:"META_CLIENT_ID"`
	MetaClientSecret   string `env:"META_CLIENT_SECRET"`
	MetaRedirectURI    string `env:"META_REDIRECT_URI"`
	MetaGraphVersion   string `env:"META_GRAPH_API_VERSION" default:"v18.0"`
	WebhookVerifyToken string `env:"META_WEBHOOK_VERIFY_TOKEN"`
	WebhookSecret      string `env:"META_WEBHOOK_SECRET"`
	SessionSecret      string `env:"SESSION_SECRET"`
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	SyncPostLimit   int `env:"SYNC_POST_LIMIT" default:"25"`
	SyncReviewLimit int `env:"SYNC_REVIEW_LIMIT" default:"25"`

	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":              cfg.DatabaseURL,
		"REDIS_URL":                 cfg.RedisURL,
		"META_CLIENT_ID":            cfg.MetaClientID,
		"META_CLIENT_SECRET":        cfg.MetaClientSecret,
		"META_REDIRECT_URI":         cfg.MetaRedirectURI,
		"META_WEBHOOK_VERIFY_TOKEN": cfg.WebhookVerifyToken,
		"META_WEBHOOK_SECRET":       cfg.WebhookSecret,
		"SESSION_SECRET":            cfg.SessionSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.WebhookSecret) < 10 || len(cfg.WebhookSecret) > 100 {
		return errors.New("META_WEBHOOK_SECRET must be between 10 and 100 characters")
	}

	if cfg.TokenEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	return nil
}
