package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the smartaccess client.
//
// Fields:
//   - BaseURL: root of the backend HTTP API, without a trailing slash.
//   - RequestTimeout: per-call timeout applied by the transport.
//   - PollInterval / PollBackoffInterval: verification polling cadence before
//     and after PollErrorThreshold consecutive failures.
//   - PollMaxDuration: stop verification polling after this long; 0 = never.
//   - SessionDBPath: sqlite file holding the persisted session; "" disables it.
//   - SessionPassphrase: seals the persisted session when non-empty.
//   - RemoteLogout: send a best-effort POST /auth/logout on logout.
//   - LogFormat / LogLevel: see logging.New.
//   - MetricsAddr: serve Prometheus metrics on this address; "" disables it.
type Config struct {
	BaseURL             string
	RequestTimeout      time.Duration
	PollInterval        time.Duration
	PollBackoffInterval time.Duration
	PollErrorThreshold  int
	PollMaxDuration     time.Duration
	SessionDBPath       string
	SessionPassphrase   string
	RemoteLogout        bool
	LogFormat           string
	LogLevel            string
	MetricsAddr         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.PollInterval = 5 * time.Second
	c.PollBackoffInterval = 30 * time.Second
	c.PollErrorThreshold = 10
	c.PollMaxDuration = 0
	c.SessionDBPath = "session.db"
	c.SessionPassphrase = ""
	c.RemoteLogout = true
	c.LogFormat = "text"
	c.LogLevel = "info"
	c.MetricsAddr = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, a JSON file (if requested) and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
