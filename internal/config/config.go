package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backup configures the optional encrypted S3 snapshot uploader. Backup
// is disabled unless bucket and credentials are all set.
type Backup struct {
	S3Endpoint string        `env:"S3_ENDPOINT"`
	S3Bucket   string        `env:"S3_BUCKET"`
	S3Region   string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Access   string        `env:"S3_ACCESS_KEY"`
	S3Secret   string        `env:"S3_SECRET_KEY"`
	Passphrase string        `env:"PASSPHRASE"`
	Interval   time.Duration `env:"INTERVAL" envDefault:"24h"`
	Keep       int           `env:"KEEP" envDefault:"14"`
}

// Config is the full server configuration, loaded from the
// environment.
type Config struct {
	Port            string        `env:"STOCKPILE_PORT" envDefault:"8080"`
	DBPath          string        `env:"STOCKPILE_DB_PATH" envDefault:"stockpile.db"`
	LogLevel        string        `env:"STOCKPILE_LOG_LEVEL" envDefault:"info"`
	HistoryCapacity int           `env:"STOCKPILE_HISTORY_CAPACITY" envDefault:"100"`
	TokenSecret     string        `env:"STOCKPILE_TOKEN_SECRET"`
	PollFallback    bool          `env:"STOCKPILE_POLL_FALLBACK" envDefault:"false"`
	PollInterval    time.Duration `env:"STOCKPILE_POLL_INTERVAL" envDefault:"30s"`
	Backup          Backup        `envPrefix:"STOCKPILE_BACKUP_"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
