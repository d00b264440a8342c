package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/lovenda/seatplan/internal/adapters/http"
	"github.com/lovenda/seatplan/internal/adapters/presencews"
	"github.com/lovenda/seatplan/internal/adapters/store"
	"github.com/lovenda/seatplan/internal/analytics"
	"github.com/lovenda/seatplan/internal/app"
	"github.com/lovenda/seatplan/internal/config"
	"github.com/lovenda/seatplan/internal/core"
	transport "github.com/lovenda/seatplan/internal/transport/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open store")
	}
	defer st.Close()

	channel := presencews.NewChannel(cfg.PresenceTTL)

	// Events land in the local store unless an external collector is
	// configured.
	var sink analytics.Sink = st
	if cfg.AnalyticsURL != "" {
		sink = analytics.NewHTTPSink(cfg.AnalyticsURL)
	}

	registry := app.NewRegistry(app.Deps{
		Store:   st,
		Prefs:   st,
		Channel: channel,
		Sink:    sink,
		Bounds:  core.Bounds{Width: cfg.HallWidth, Height: cfg.HallHeight},
		Flush: analytics.Config{
			FlushInterval:  cfg.FlushInterval,
			BatchThreshold: cfg.BatchThreshold,
		},
	})

	handlers := transport.NewHandlers(registry, st)
	presence := presencews.NewController(channel)

	r := router.SetupRouter(ctx, cfg, handlers, presence)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Seatplan server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	registry.CloseAll(shutdownCtx)
	log.Info().Msg("Server exited gracefully")
}
