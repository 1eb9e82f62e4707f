package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/logging"
	"github.com/dmitrijs2005/smartaccess/internal/stubapi"
	"github.com/dmitrijs2005/smartaccess/internal/stubapi/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	srv := stubapi.New(stubapi.Options{
		Secret:         []byte(cfg.Secret),
		TokenTTL:       cfg.TokenTTL,
		LoginShape:     cfg.LoginShape,
		StatusShape:    cfg.StatusShape,
		QRFormat:       cfg.QRFormat,
		VerifyAfter:    cfg.VerifyAfter,
		StatusFailures: cfg.StatusFailures,
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Addr) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "shutdown", "err", err)
		}
	}
}
