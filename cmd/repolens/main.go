package main

import (
	"fmt"
	"os"

	"github.com/klimeurt/repolens/internal/config"
	"github.com/klimeurt/repolens/internal/logging"
	"github.com/klimeurt/repolens/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"

	// Global flags
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		ui.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repolens",
		Short: "RepoLens - GitHub repository analyzer",
		Long: `RepoLens clones a GitHub repository, checks it for a README, tests,
commit activity and stars, and turns those signals into a score, a short
summary and a roadmap of improvements. The clone is deleted afterwards.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			var err error
			cfg, err = config.LoadFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger, err = logging.New(cfg.LogLevel, debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables take precedence)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the RepoLens version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "repolens %s\n", version)
		},
	}
}
