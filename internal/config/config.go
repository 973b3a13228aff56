// Package config loads the engine configuration from environment
// variables. envconfig maps the variables onto the struct fields.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Accrual policy names accepted in ACCRUAL_POLICY.
const (
	PolicyDaily   = "daily"
	PolicyLumpSum = "lump_sum"
)

// Config holds ALL application settings.
type Config struct {
	// --- Database ---
	// Inside Docker "localhost" is almost always wrong. The default is the
	// docker-compose service name; override DB_HOST=localhost for local runs.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"vitron"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"vitrontrade"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Reference timezone for the accrual day boundary. Payout idempotency is
	// day-granular, so this decides when "today" rolls over.
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// --- Accrual ---
	// Cron expression for the scheduled run. The production default is one
	// run per day at midnight; a 12h variant is "0 */12 * * *".
	AccrualSchedule string `envconfig:"ACCRUAL_SCHEDULE" default:"0 0 * * *"`
	// Which payout strategy the scheduled run applies to in-window
	// investments: "daily" prorates, "lump_sum" pays everything at the end.
	AccrualPolicy string `envconfig:"ACCRUAL_POLICY" default:"daily"`

	// --- Notifications ---
	NotifyTelegramEnabled bool   `envconfig:"NOTIFY_TELEGRAM_ENABLED" default:"false"`
	TelegramBotToken      string `envconfig:"TELEGRAM_BOT_TOKEN"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location resolves AppTimezone, falling back to UTC if the zone database
// does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		log.WithError(err).Warnf("Unknown timezone %q, falling back to UTC", c.AppTimezone)
		return time.UTC
	}
	return loc
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.AccrualPolicy != PolicyDaily && c.AccrualPolicy != PolicyLumpSum {
		return fmt.Errorf("ACCRUAL_POLICY must be %q or %q, got %q", PolicyDaily, PolicyLumpSum, c.AccrualPolicy)
	}
	if c.AccrualSchedule == "" {
		return fmt.Errorf("ACCRUAL_SCHEDULE must not be empty")
	}
	if c.NotifyTelegramEnabled && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN required when NOTIFY_TELEGRAM_ENABLED=true")
	}
	return nil
}

// Load reads the environment and fills the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
