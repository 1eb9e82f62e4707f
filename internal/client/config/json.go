package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/smartaccess/internal/flagx"
	"github.com/dmitrijs2005/smartaccess/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it
// names.
type JsonConfig struct {
	BaseURL             *string         `json:"base_url"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	PollInterval        *timex.Duration `json:"poll_interval"`
	PollBackoffInterval *timex.Duration `json:"poll_backoff_interval"`
	PollErrorThreshold  *int            `json:"poll_error_threshold"`
	PollMaxDuration     *timex.Duration `json:"poll_max_duration"`
	SessionDBPath       *string         `json:"session_db_path"`
	SessionPassphrase   *string         `json:"session_passphrase"`
	RemoteLogout        *bool           `json:"remote_logout"`
	LogFormat           *string         `json:"log_format"`
	LogLevel            *string         `json:"log_level"`
	MetricsAddr         *string         `json:"metrics_addr"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without that flag nothing happens. Read or decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != nil {
		cfg.BaseURL = *jc.BaseURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.PollInterval != nil {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	if jc.PollBackoffInterval != nil {
		cfg.PollBackoffInterval = jc.PollBackoffInterval.Duration
	}
	if jc.PollErrorThreshold != nil {
		cfg.PollErrorThreshold = *jc.PollErrorThreshold
	}
	if jc.PollMaxDuration != nil {
		cfg.PollMaxDuration = jc.PollMaxDuration.Duration
	}
	if jc.SessionDBPath != nil {
		cfg.SessionDBPath = *jc.SessionDBPath
	}
	if jc.SessionPassphrase != nil {
		cfg.SessionPassphrase = *jc.SessionPassphrase
	}
	if jc.RemoteLogout != nil {
		cfg.RemoteLogout = *jc.RemoteLogout
	}
	if jc.LogFormat != nil {
		cfg.LogFormat = *jc.LogFormat
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.MetricsAddr != nil {
		cfg.MetricsAddr = *jc.MetricsAddr
	}
}
