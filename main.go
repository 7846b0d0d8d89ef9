package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/breach/assets"
	"github.com/robalobadob/breach/internal/config"
	"github.com/robalobadob/breach/internal/httpserver"
	"github.com/robalobadob/breach/internal/metrics"
	"github.com/robalobadob/breach/internal/noise"
	"github.com/robalobadob/breach/internal/puzzle"
	"github.com/robalobadob/breach/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	statuses, err := assets.StatusMessages()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load status messages")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pz := puzzle.Default()
	mem := store.NewMemoryStore()
	feed := noise.NewGenerator(pz.Chunks(), statuses, noise.WithLines(cfg.FeedLines))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, mem.Len)

	// drop sessions nobody has touched for a full TTL
	go noise.Ticker(ctx, cfg.SessionTTL/4, func(now time.Time) {
		if n := mem.Sweep(ctx, now.Add(-cfg.SessionTTL)); n > 0 {
			log.Debug().Int("swept", n).Msg("expired sessions")
		}
	})

	srv, err := httpserver.New(cfg, mem, pz, feed, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting breach server")
	if err := srv.Start(ctx, cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
