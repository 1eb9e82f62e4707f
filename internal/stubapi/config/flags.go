package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/flagx"
)

// parseFlags overlays command-line flags on cfg.
//
//	-a string   listen address
//	-s string   token secret
//	-t int      token lifetime in minutes
//	-v int      status checks before verification
//	-l string   log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-v", "-l"})

	fs := flag.NewFlagSet("stub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "listen address")
	fs.StringVar(&cfg.Secret, "s", cfg.Secret, "token secret")
	ttl := fs.Int("t", int(cfg.TokenTTL.Minutes()), "token lifetime (in minutes)")
	fs.IntVar(&cfg.VerifyAfter, "v", cfg.VerifyAfter, "status checks before verification")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.TokenTTL = time.Duration(*ttl) * time.Minute
		}
	})
	return nil
}
