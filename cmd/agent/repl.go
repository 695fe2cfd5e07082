package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	zLog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcp-agent/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run the interactive command loop",
	RunE:  runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, _, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	loopErr := repl.New(engine, os.Stdin, os.Stdout).Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		zLog.Error().Err(err).Msg("tasks still in flight at shutdown")
	}
	return loopErr
}
