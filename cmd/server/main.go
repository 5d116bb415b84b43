package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/modtag/modtag/internal/api"
	"github.com/modtag/modtag/internal/audit"
	"github.com/modtag/modtag/internal/config"
	"github.com/modtag/modtag/internal/consumer"
	"github.com/modtag/modtag/internal/handler"
	"github.com/modtag/modtag/internal/koji"
	"github.com/modtag/modtag/internal/logging"
	"github.com/modtag/modtag/internal/mbs"
	"github.com/modtag/modtag/internal/rules"
	"github.com/modtag/modtag/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.AppEnv == "dev")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	defs, err := rules.Load(cfg.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("failed to load tagging rules")
	}
	log.Info().Int("rules", len(defs)).Str("path", cfg.RulesPath).Bool("dry_run", cfg.DryRun).
		Msg("tagging rules loaded")

	telemetry.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, err := audit.NewSink(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create audit store")
	}
	defer func() { _ = sink.Close() }()

	var dispatcher handler.TagDispatcher
	if !cfg.DryRun {
		dispatcher = koji.NewClient(cfg.KojiHubURL, cfg.KojiUser, cfg.KojiPassword)
	}
	h := handler.New(defs, mbs.NewClient(cfg.MBSAPIURL), dispatcher, sink, cfg.DryRun,
		logging.Component("handler"))

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("modtag"))
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("failed to connect to message bus")
	}
	defer nc.Close()

	cons := consumer.New(nc, cfg.EventSubject, cfg.QueueGroup, h, logging.Component("consumer"))
	if err := cons.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start consumer")
	}
	defer func() { _ = cons.Close() }()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewServer(defs, sink, cfg.DryRun).Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = srv.Shutdown(ctxShut)
	log.Info().Msg("stopped")
}
