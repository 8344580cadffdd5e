// Package cmd provides the CLI commands for netsift.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netsift/netsift/internal/config"
	"github.com/netsift/netsift/internal/logging"
	"github.com/netsift/netsift/internal/service"
	"github.com/netsift/netsift/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the netsift CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "netsift",
		Short: "Hybrid full-text and semantic search over scraped documents",
		Long: `netsift ingests scraped web documents into two indexes, a vector
store for semantic similarity and an in-process BM25 index for keyword
matching, and serves queries against either or both, fused with
reciprocal rank fusion.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("netsift version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./netsift.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.netsift/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging configures the default logger before any command runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg.Level = "debug"
		logCfg.FilePath = logging.DefaultLogPath()
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

// loadServices builds the configuration and the component graph.
func loadServices(ctx context.Context) (*service.Services, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return service.New(ctx, cfg)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
