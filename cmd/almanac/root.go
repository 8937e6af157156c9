package main

import (
	"log/slog"

	"github.com/praetorian-inc/almanac/pkg/config"
	"github.com/praetorian-inc/almanac/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	envFile string

	// set by PersistentPreRunE; commands run directly in tests see zero values
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "almanac",
	Short: "Almanac - lowest reachable location for seed ranges",
	Long: `Almanac evaluates almanac documents: a list of seeds and a chain of
stages, each mapping source intervals to destination intervals. It reports the
lowest value reachable from the seeds read as single values (points) and as
(start, length) pairs (ranges). Range mode never enumerates individual seeds, so
billion-wide ranges are solved in microseconds.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env if present)")

	// Add subcommands
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(builtinsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(envFile)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Verbose: verbose,
		Quiet:   quiet,
	})
	return nil
}

// cmdLogger returns the configured logger, or a discarding one before setup.
func cmdLogger() *slog.Logger {
	if logger == nil {
		return logging.Discard()
	}
	return logger
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
