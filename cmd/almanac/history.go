package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/praetorian-inc/almanac/pkg/store"
	"github.com/spf13/cobra"
)

var (
	historyDB     string
	historyDigest string
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded solves",
	Long:  "Display runs recorded by 'almanac solve --db'",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", "", "Run history SQLite file or postgres:// URL (default: ALMANAC_DB_PATH)")
	historyCmd.Flags().StringVar(&historyDigest, "digest", "", "Only runs of the almanac with this digest")
	historyCmd.Flags().StringVar(&historyFormat, "format", "table", "Output format: table, json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := resolve(historyDB, cfg.DBPath)
	if path == "" {
		return fmt.Errorf("--db or ALMANAC_DB_PATH is required")
	}

	s, err := store.New(store.Config{Path: path})
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer s.Close()

	var runs []*store.Run
	if historyDigest != "" {
		runs, err = s.RunsForDigest(historyDigest)
	} else {
		runs, err = s.GetRuns()
	}
	if err != nil {
		return err
	}

	switch historyFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	case "table":
		return outputHistoryTable(cmd, runs)
	default:
		return fmt.Errorf("unknown output format: %s", historyFormat)
	}
}

func outputHistoryTable(cmd *cobra.Command, runs []*store.Run) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID\tAlmanac\tMode\tMinimum\tSeeds\tFragments\tDuration\tCreated\n")
	fmt.Fprintf(w, "--\t-------\t----\t-------\t-----\t---------\t--------\t-------\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.Almanac, r.Mode, r.Minimum, r.Seeds, r.Fragments,
			r.Duration.Round(time.Microsecond), r.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}
