// Package config loads runtime configuration for the smartaccess client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed with SMARTACCESS_, optionally read from a
//     .env file in the working directory (see parseEnv).
//  3. Optional JSON file selected via -c or -config (see parseJson).
//  4. Command-line flags (see parseFlags), which override everything else.
//
// Supported flags
//
//	-u string   backend base URL
//	-t int      request timeout (seconds)
//	-p int      verification poll interval (seconds)
//	-d string   session database path ("" disables persistence)
//	-l string   log level
//
// # JSON schema
//
// Durations may be strings like "5s" or integer nanoseconds:
//
//	{
//	  "base_url": "https://api.example.com",
//	  "request_timeout": "10s",
//	  "poll_interval": "5s",
//	  "poll_backoff_interval": "30s",
//	  "poll_error_threshold": 10,
//	  "poll_max_duration": "0s",
//	  "session_db_path": "session.db",
//	  "remote_logout": true,
//	  "log_format": "text",
//	  "log_level": "info"
//	}
package config
