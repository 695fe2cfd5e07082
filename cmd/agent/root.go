package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcp-agent/internal/config"
	"mcp-agent/internal/orchestrator"
	"mcp-agent/pkg/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Multi-provider task orchestration engine",
	Long: `agent plans instructions into provider operations, fans them out to
MCP-style capability providers over HTTP, and aggregates the results.

With no arguments, launches the interactive loop. Use 'agent serve' to run
the HTTP API instead, or 'agent stub' to start a local stand-in provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the configuration file (default ./agent.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(stubCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildEngine loads configuration, initializes logging and wires the engine.
// Configuration problems are the only fatal startup errors.
func buildEngine(ctx context.Context) (*orchestrator.Orchestrator, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.NewGlobal(cfg.Log.Level, cfg.Log.Pretty); err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}

	engine, err := orchestrator.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	engine.Start(ctx)
	return engine, cfg, nil
}
