package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "smartaccess"

// envConfig mirrors Config for envconfig. Variables that are not set leave the
// current value untouched.
type envConfig struct {
	BaseURL             string        `envconfig:"BASE_URL"`
	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT"`
	PollInterval        time.Duration `envconfig:"POLL_INTERVAL"`
	PollBackoffInterval time.Duration `envconfig:"POLL_BACKOFF_INTERVAL"`
	PollErrorThreshold  int           `envconfig:"POLL_ERROR_THRESHOLD"`
	PollMaxDuration     time.Duration `envconfig:"POLL_MAX_DURATION"`
	SessionDBPath       string        `envconfig:"SESSION_DB_PATH"`
	SessionPassphrase   string        `envconfig:"SESSION_PASSPHRASE"`
	RemoteLogout        bool          `envconfig:"REMOTE_LOGOUT"`
	LogFormat           string        `envconfig:"LOG_FORMAT"`
	LogLevel            string        `envconfig:"LOG_LEVEL"`
	MetricsAddr         string        `envconfig:"METRICS_ADDR"`
}

// parseEnv overlays cfg with SMARTACCESS_* variables. A .env file is loaded
// first if present; variables already set in the process win over it.
// Panics on malformed values, like the other loaders.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	ec := envConfig{
		BaseURL:             cfg.BaseURL,
		RequestTimeout:      cfg.RequestTimeout,
		PollInterval:        cfg.PollInterval,
		PollBackoffInterval: cfg.PollBackoffInterval,
		PollErrorThreshold:  cfg.PollErrorThreshold,
		PollMaxDuration:     cfg.PollMaxDuration,
		SessionDBPath:       cfg.SessionDBPath,
		SessionPassphrase:   cfg.SessionPassphrase,
		RemoteLogout:        cfg.RemoteLogout,
		LogFormat:           cfg.LogFormat,
		LogLevel:            cfg.LogLevel,
		MetricsAddr:         cfg.MetricsAddr,
	}
	if err := envconfig.Process(envPrefix, &ec); err != nil {
		panic(err)
	}

	cfg.BaseURL = ec.BaseURL
	cfg.RequestTimeout = ec.RequestTimeout
	cfg.PollInterval = ec.PollInterval
	cfg.PollBackoffInterval = ec.PollBackoffInterval
	cfg.PollErrorThreshold = ec.PollErrorThreshold
	cfg.PollMaxDuration = ec.PollMaxDuration
	cfg.SessionDBPath = ec.SessionDBPath
	cfg.SessionPassphrase = ec.SessionPassphrase
	cfg.RemoteLogout = ec.RemoteLogout
	cfg.LogFormat = ec.LogFormat
	cfg.LogLevel = ec.LogLevel
	cfg.MetricsAddr = ec.MetricsAddr
}
