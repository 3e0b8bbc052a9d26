package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmarcou/curator"
	"github.com/tmarcou/curator/internal/config"
	"github.com/tmarcou/curator/internal/errmsg"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	svc, err := curator.New(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpStoreOpen, err))
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncCfg := cfg.GetSyncConfig()
	svc.StartSweeper(ctx, time.Duration(syncCfg.SweepIntervalSeconds)*time.Second)

	log.Info().
		Bool("scrobbler", cfg.HasLastfmConfig()).
		Bool("provider", cfg.HasProviderConfig()).
		Msg("curator started")

	<-ctx.Done()
	log.Info().Msg("curator stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}
