package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/almanac/pkg/serve"
	"github.com/spf13/cobra"
)

var (
	serveWorkers int
	serveDB      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming NDJSON server",
	Long: `Run Almanac as a long-lived streaming server that accepts solve requests
via stdin and writes results to stdout using NDJSON format.

Builtin almanacs are parsed once and reused. The process handles requests
until stdin closes, a "close" request arrives, or SIGTERM is received.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Concurrent seed evaluations per request")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Record runs in this SQLite file or postgres:// URL (default: ALMANAC_DB_PATH)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	core, err := newCore(serveWorkers, 0, resolve(serveDB, cfg.DBPath), nil)
	if err != nil {
		return err
	}
	defer core.Close()

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Create and run server
	srv := serve.NewServer(core, cmd.InOrStdin(), cmd.OutOrStdout()).WithLogger(cmdLogger())
	return srv.Run(ctx)
}
