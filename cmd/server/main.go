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

	router "github.com/dkeye/Rehearsal/internal/adapters/http"
	signaladapter "github.com/dkeye/Rehearsal/internal/adapters/signal"
	"github.com/dkeye/Rehearsal/internal/adapters/turnrelay"
	"github.com/dkeye/Rehearsal/internal/app"
	"github.com/dkeye/Rehearsal/internal/config"
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

	reg := app.NewRegistry()
	dir := app.NewDirectory()
	coord := app.NewCoordinator(reg, dir)

	ctl := signaladapter.NewController(coord, app.DropPolicy{}, signaladapter.Options{
		ReadLimit:  cfg.ReadLimit,
		SendBuffer: cfg.SendBuffer,
		WriteWait:  cfg.WriteWait,
		MsgRate:    cfg.MsgRate,
		MsgBurst:   cfg.MsgBurst,
	})

	if cfg.TURN.Enabled {
		relay, err := turnrelay.Start(cfg.TURN)
		if err != nil {
			log.Error().Err(err).Msg("failed to start TURN relay")
		} else {
			defer relay.Close()
		}
	}

	r := router.SetupRouter(ctx, cfg, coord, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Rehearsal server started")
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
	log.Info().Msg("Server exited gracefully")
}
