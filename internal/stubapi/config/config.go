// Package config loads settings for the stub backend: defaults, then an
// optional .env file and STUB_* environment variables, then flags.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/stubapi"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of the environment variables read by LoadConfig.
const EnvPrefix = "stub"

// Config holds runtime settings for the stub backend.
//
// Fields:
//   - Addr: listen address.
//   - Secret: HMAC key for the issued HS256 tokens.
//   - TokenTTL: lifetime of issued tokens.
//   - LoginShape / StatusShape / QRFormat: reply variants, see stubapi.
//   - VerifyAfter: status checks before a new resident becomes verified.
//   - StatusFailures: leading status checks answered with a 503.
//   - LogFormat / LogLevel: see logging.New.
type Config struct {
	Addr           string        `envconfig:"ADDR"`
	Secret         string        `envconfig:"SECRET"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL"`
	LoginShape     string        `envconfig:"LOGIN_SHAPE"`
	StatusShape    string        `envconfig:"STATUS_SHAPE"`
	QRFormat       string        `envconfig:"QR_FORMAT"`
	VerifyAfter    int           `envconfig:"VERIFY_AFTER"`
	StatusFailures int           `envconfig:"STATUS_FAILURES"`
	LogFormat      string        `envconfig:"LOG_FORMAT"`
	LogLevel       string        `envconfig:"LOG_LEVEL"`
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.Secret = "smartaccess-stub-secret"
	c.TokenTTL = 24 * time.Hour
	c.LoginShape = stubapi.LoginFlat
	c.StatusShape = stubapi.StatusUser
	c.QRFormat = stubapi.QRImage
	c.VerifyAfter = 3
	c.StatusFailures = 0
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// LoadConfig applies defaults, STUB_* variables and finally the flags in
// args. A .env file in the working directory is loaded first; variables
// already set in the process win over it.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, nil
}
