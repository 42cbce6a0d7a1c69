package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/emilythestrangee/readit/backend/internal/config"
	"github.com/emilythestrangee/readit/backend/internal/logger"
	"github.com/emilythestrangee/readit/backend/internal/server"
)

func gracefulShutdown(apiServer *http.Server, done chan<- struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	close(done)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Configure(cfg.Log.Level, cfg.Log.File)

	apiServer, cleanup, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}
	defer cleanup()

	done := make(chan struct{})
	go gracefulShutdown(apiServer, done)

	log.Info().Int("port", cfg.Port).Msg("🚀 Server starting")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("http server error")
		cleanup()
		os.Exit(1)
	}

	<-done
	log.Info().Msg("graceful shutdown complete")
}
