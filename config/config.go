package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config carries the runtime settings, read from AISTM7_* environment
// variables.
type Config struct {
	DatabaseDSN string `envconfig:"DATABASE_DSN" required:"true"`

	OracleBaseURL string        `envconfig:"ORACLE_BASE_URL" required:"true"`
	PriceFeedID   string        `envconfig:"PRICE_FEED_ID" required:"true"`
	OracleMaxAge  time.Duration `envconfig:"ORACLE_MAX_AGE" default:"60s"`

	WebhookURL string `envconfig:"WEBHOOK_URL"`

	// Authority identity presented on update and initialize operations.
	Authority string `envconfig:"AUTHORITY"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"5m"`

	Bind     string `envconfig:"BIND" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("AISTM7", &cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	return &cfg, nil
}
