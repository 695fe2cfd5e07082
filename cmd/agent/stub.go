package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	zLog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcp-agent/internal/stub"
	"mcp-agent/pkg/logger"
)

var (
	stubAddr string
	stubName string
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local stand-in provider",
	Long: `Starts an HTTP provider speaking the health / methods / call protocol
with a small builtin method set. Useful for local development without real
capability providers.`,
	RunE: runStub,
}

func init() {
	stubCmd.Flags().StringVar(&stubAddr, "addr", ":8003", "listen address")
	stubCmd.Flags().StringVar(&stubName, "name", "web_search", "provider name reported in logs")
}

func runStub(cmd *cobra.Command, args []string) error {
	if err := logger.NewGlobal("debug", true); err != nil {
		return err
	}

	server := &http.Server{
		Addr:    stubAddr,
		Handler: stub.New(stubName).Handler(),
	}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			zLog.Panic().Err(err).Msg("stub provider crash")
		}
	}()
	zLog.Info().Str("addr", stubAddr).Str(logger.ProviderField, stubName).Msg("stub provider started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
