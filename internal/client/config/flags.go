package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-u string   backend base URL
//	-t int      request timeout in seconds
//	-p int      verification poll interval in seconds
//	-d string   session database path
//	-l string   log level
//	-m string   metrics listen address
//
// args is filtered with flagx.FilterArgs first so flags owned by other
// components do not break parsing.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-u", "-t", "-p", "-d", "-l", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "u", cfg.BaseURL, "backend base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	pollInterval := fs.Int("p", int(cfg.PollInterval.Seconds()), "verification poll interval (in seconds)")
	fs.StringVar(&cfg.SessionDBPath, "d", cfg.SessionDBPath, "session database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Second-granular flags would truncate sub-second values from other
	// sources, so only apply the ones actually given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		case "p":
			cfg.PollInterval = time.Duration(*pollInterval) * time.Second
		}
	})
}
