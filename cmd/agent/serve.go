package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	zLog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcp-agent/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, cfg, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	app := api.New(engine, cfg.Server.Addr)
	go func() {
		if err := app.Start(); err != nil {
			zLog.Panic().Err(err).Msg("server crash")
		}
	}()
	zLog.Info().Str("addr", cfg.Server.Addr).Msg("http server started")

	<-ctx.Done()
	stop()
	zLog.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		zLog.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		zLog.Error().Err(err).Msg("tasks still in flight at shutdown")
	}

	zLog.Info().Msg("server exiting")
	return nil
}
