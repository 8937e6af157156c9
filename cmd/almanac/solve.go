package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/praetorian-inc/almanac/pkg/engine"
	"github.com/praetorian-inc/almanac/pkg/solver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	solveBuiltin     string
	solveMode        string
	solveWorkers     int
	solveFormat      string
	solveColor       string
	solveDB          string
	solveTimeout     time.Duration
	solveMetricsFile string
)

var solveCmd = &cobra.Command{
	Use:   "solve [file|-]",
	Short: "Find the lowest reachable value",
	Long: `Evaluate an almanac and print the lowest value reachable from its seeds.

Points mode maps each seed on its own. Ranges mode reads the seeds as
(start, length) pairs and maps whole ranges at once. Both run by default.`,
	Example: `  almanac solve input.txt
  almanac solve --builtin example --mode ranges
  cat input.txt | almanac solve - --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solveBuiltin, "builtin", "", "Use an embedded almanac (see 'almanac builtins')")
	solveCmd.Flags().StringVar(&solveMode, "mode", "both", "Mode: points, ranges, both")
	solveCmd.Flags().IntVar(&solveWorkers, "workers", 0, "Concurrent seed evaluations (default: ALMANAC_WORKERS or one per CPU)")
	solveCmd.Flags().StringVar(&solveFormat, "format", "human", "Output format: human, json")
	solveCmd.Flags().StringVar(&solveColor, "color", "", "Color output: auto, always, never (default: ALMANAC_COLOR or auto)")
	solveCmd.Flags().StringVar(&solveDB, "db", "", "Record runs in this SQLite file or postgres:// URL (default: ALMANAC_DB_PATH)")
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 0, "Abort after this long (default: ALMANAC_TIMEOUT)")
	solveCmd.Flags().StringVar(&solveMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after solving")
}

func runSolve(cmd *cobra.Command, args []string) error {
	log := cmdLogger()

	modes, err := engine.ParseModes(solveMode)
	if err != nil {
		return err
	}
	switch solveFormat {
	case "human", "json":
	default:
		return fmt.Errorf("unknown output format: %s", solveFormat)
	}

	a, err := loadAlmanac(cmd, args, solveBuiltin)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	core, err := newCore(solveWorkers, solveTimeout, resolve(solveDB, cfg.DBPath), reg)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := core.SolveAlmanac(ctx, a, modes...)
	if err != nil {
		return err
	}
	for _, w := range out.Warnings {
		log.Warn("almanac issue", "almanac", out.Name, "issue", w)
	}

	if solveMetricsFile != "" {
		if err := prometheus.WriteToTextfile(solveMetricsFile, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	if solveFormat == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			return err
		}
	} else {
		writeSolveHuman(cmd.OutOrStdout(), out, newStyles(colorEnabled(resolve(solveColor, cfg.Color))))
	}

	if len(out.Errors) > 0 {
		return fmt.Errorf("%d of %d modes failed", len(out.Errors), len(modes))
	}
	return nil
}

// colorEnabled applies --color the same way for every command.
func colorEnabled(mode string) bool {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default: // "auto"
		// Check if stdout is a TTY and NO_COLOR is not set
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != ""
	}
	return !color.NoColor
}

// styles holds color formatters for human output
type styles struct {
	heading *color.Color
	mode    *color.Color
	minimum *color.Color
	detail  *color.Color
	failure *color.Color
}

// newStyles creates color formatters; enabled=false disables them all
func newStyles(enabled bool) *styles {
	s := &styles{
		heading: color.New(color.Bold),
		mode:    color.New(color.FgHiBlue),
		minimum: color.New(color.Bold, color.FgHiGreen),
		detail:  color.New(color.Faint),
		failure: color.New(color.FgRed),
	}

	if !enabled {
		s.heading.DisableColor()
		s.mode.DisableColor()
		s.minimum.DisableColor()
		s.detail.DisableColor()
		s.failure.DisableColor()
	}

	return s
}

func writeSolveHuman(w io.Writer, out *engine.Output, s *styles) {
	fmt.Fprintf(w, "%s %s %s\n", s.heading.Sprint("Almanac:"), out.Name, s.detail.Sprintf("(digest %s)", shortDigest(out.Digest)))

	for _, r := range out.Results {
		unit := "seeds"
		if r.Mode == solver.ModeRanges {
			unit = "seed ranges"
		}
		fmt.Fprintf(w, "  %-7s %s %s\n",
			s.mode.Sprint(r.Mode),
			s.minimum.Sprint(r.Minimum),
			s.detail.Sprintf("(%d %s, %d fragments, %s)", r.Seeds, unit, r.Fragments, r.Duration.Round(time.Microsecond)))
	}
	for _, m := range []solver.Mode{solver.ModePoints, solver.ModeRanges} {
		if msg, ok := out.Errors[string(m)]; ok {
			fmt.Fprintf(w, "  %-7s %s\n", s.mode.Sprint(m), s.failure.Sprint("error: "+msg))
		}
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
