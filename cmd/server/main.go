package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kompihq/kompi-engine/pkg/adapters/handler"
	"github.com/kompihq/kompi-engine/pkg/adapters/repository/sqlite"
	"github.com/kompihq/kompi-engine/pkg/config"
	"github.com/kompihq/kompi-engine/pkg/core/services"
	"github.com/kompihq/kompi-engine/pkg/log"
	"github.com/kompihq/kompi-engine/pkg/metrics"
	"github.com/kompihq/kompi-engine/pkg/recorder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Init(log.Config{Level: "info"})
		log.Logger.Fatal().Err(err).Msg("load configuration")
	}

	log.Init(log.Config{
		Level:      cfg.LogLevel,
		JSONOutput: cfg.LogFormat == "json",
	})
	logger := log.WithComponent("server")

	metrics.Register()

	repo, err := sqlite.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to database")
	}
	defer repo.Close()

	rec := recorder.New(repo, recorder.Options{
		BufferSize: cfg.RecorderBuffer,
		Workers:    cfg.RecorderWorkers,
		Retries:    cfg.RecorderRetries,
	})

	gate := services.NewCountingPlanGate(repo, cfg.FreeLinkLimit)
	linkService := services.NewLinkService(repo, gate, cfg.CodeLength, cfg.CodeMaxAttempts)
	codeService := services.NewCodeService(repo, repo, cfg.BaseURL)
	resolverService := services.NewResolverService(linkService, repo, repo, rec, cfg.ResolveTimeout())
	analyticsService := services.NewAnalyticsService(repo)

	router := handler.NewRouter(cfg, handler.Services{
		Links:     linkService,
		Codes:     codeService,
		Resolver:  resolverService,
		Analytics: analyticsService,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("base_url", cfg.BaseURL).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}

	// Drain buffered click events before exit so a deploy doesn't lose the
	// tail of the stream.
	rec.Close()
}
