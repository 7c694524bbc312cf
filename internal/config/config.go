package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	PostgresURL string `envconfig:"POSTGRES_URL" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" required:"true"`

	// Settlement is the external endpoint that approves or declines a
	// booking's payment. It is failure-prone and slow; see the retry and
	// breaker knobs below.
	SettlementURL         string        `envconfig:"SETTLEMENT_URL" required:"true"`
	SettlementTimeout     time.Duration `envconfig:"SETTLEMENT_TIMEOUT" default:"10s"`
	SettlementMaxAttempts int           `envconfig:"SETTLEMENT_MAX_ATTEMPTS" default:"3"`
	SettlementBackoff     time.Duration `envconfig:"SETTLEMENT_BACKOFF" default:"500ms"`
	BreakerCooldown       time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`

	// NightlyRate is the stub tariff used until a real pricing engine
	// exists.
	NightlyRate string `envconfig:"NIGHTLY_RATE" default:"100.00"`
	Currency    string `envconfig:"CURRENCY" default:"EUR"`
}

func Load() (Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	return c, err
}
