package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/praetorian-inc/almanac/pkg/almanac"
	"github.com/praetorian-inc/almanac/pkg/engine"
	"github.com/praetorian-inc/almanac/pkg/enum"
	"github.com/spf13/cobra"
)

var (
	batchMode          string
	batchWorkers       int
	batchFormat        string
	batchDB            string
	batchExtensions    []string
	batchIncludeHidden bool
	batchMaxFileSize   int64
	batchGit           bool
	batchRev           string
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Solve every almanac under a directory",
	Long: `Walk a directory, solve every almanac document found, and print one row
per file. Hidden files, binary files, and paths matched by a top-level
.gitignore are skipped.

With --git the directory is read as a git repository and the files committed
at --rev are solved instead of the working tree.`,
	Example: `  almanac batch ./inputs
  almanac batch ./inputs --ext .txt --mode ranges --format json
  almanac batch ./inputs --git --rev v1.2.0`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchMode, "mode", "both", "Mode: points, ranges, both")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Concurrent seed evaluations (default: ALMANAC_WORKERS or one per CPU)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "table", "Output format: table, json")
	batchCmd.Flags().StringVar(&batchDB, "db", "", "Record runs in this SQLite file or postgres:// URL (default: ALMANAC_DB_PATH)")
	batchCmd.Flags().StringSliceVar(&batchExtensions, "ext", nil, "File extensions to include (default: .txt,.yml,.yaml)")
	batchCmd.Flags().BoolVar(&batchIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	batchCmd.Flags().Int64Var(&batchMaxFileSize, "max-file-size", 10*1024*1024, "Skip files larger than this many bytes (0 = no limit)")
	batchCmd.Flags().BoolVar(&batchGit, "git", false, "Read committed files from the git repository at <dir>")
	batchCmd.Flags().StringVar(&batchRev, "rev", "HEAD", "Revision to read with --git")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := cmdLogger()
	root := args[0]

	if _, err := engine.ParseModes(batchMode); err != nil {
		return err
	}
	switch batchFormat {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format: %s", batchFormat)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	enumCfg := enum.Config{
		Root:          root,
		IncludeHidden: batchIncludeHidden,
		MaxFileSize:   batchMaxFileSize,
		Extensions:    batchExtensions,
	}
	var e enum.Enumerator = enum.NewFilesystemEnumerator(enumCfg)
	relTo := root
	if batchGit {
		g := enum.NewGitEnumerator(enumCfg)
		g.CommitRef = batchRev
		// git paths are already relative to the repository root
		e, relTo = g, ""
	}

	items, err := collectInputs(ctx, e, relTo)
	if err != nil {
		return fmt.Errorf("enumerating %s: %w", root, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("no almanac files found under %s", root)
	}
	log.Info("enumerated almanacs", "root", root, "files", len(items))

	core, err := newCore(batchWorkers, 0, resolve(batchDB, cfg.DBPath), nil)
	if err != nil {
		return err
	}
	defer core.Close()

	result, err := core.SolveBatch(ctx, items)
	if err != nil {
		return err
	}

	if batchFormat == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	} else {
		outputBatchTable(cmd, items, result)
	}

	if failed := failedItems(result); failed > 0 {
		return fmt.Errorf("%d of %d almanacs failed", failed, len(items))
	}
	return nil
}

// failedItems counts items with any failed mode, partial results included.
func failedItems(result *engine.BatchResult) int {
	failed := result.Failed
	for _, item := range result.Results {
		if item.Output != nil && len(item.Output.Errors) > 0 {
			failed++
		}
	}
	return failed
}

// collectInputs enumerates almanac files into batch inputs ordered by path.
// Paths are named relative to relTo when it is set.
func collectInputs(ctx context.Context, e enum.Enumerator, relTo string) ([]engine.Input, error) {
	var (
		mu    sync.Mutex
		items []engine.Input
	)
	err := e.Enumerate(ctx, func(path string, content []byte) error {
		name := path
		if relTo != "" {
			if rel, err := filepath.Rel(relTo, path); err == nil && rel != "." {
				name = rel
			}
		}
		name = filepath.ToSlash(name)
		in := engine.Input{
			Name:    name,
			Almanac: string(content),
			Format:  almanac.FormatForPath(path),
			Mode:    batchMode,
		}
		mu.Lock()
		items = append(items, in)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func outputBatchTable(cmd *cobra.Command, items []engine.Input, result *engine.BatchResult) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "File\tPoints\tRanges\tStatus\n")
	fmt.Fprintf(w, "----\t------\t------\t------\n")
	for _, item := range result.Results {
		name := items[item.Index].Name
		if item.Output == nil {
			fmt.Fprintf(w, "%s\t-\t-\terror: %s\n", name, item.Error)
			continue
		}
		values := map[string]string{"points": "-", "ranges": "-"}
		for _, r := range item.Output.Results {
			values[string(r.Mode)] = fmt.Sprint(r.Minimum)
		}
		status := "ok"
		if len(item.Output.Errors) > 0 {
			var failed []string
			for m, msg := range item.Output.Errors {
				failed = append(failed, m+": "+msg)
			}
			sort.Strings(failed)
			status = "partial (" + strings.Join(failed, "; ") + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, values["points"], values["ranges"], status)
	}
	w.Flush()

	summary := fmt.Sprintf("%d solved, %d failed", result.Total, result.Failed)
	if partial := failedItems(result) - result.Failed; partial > 0 {
		summary += fmt.Sprintf(", %d partial", partial)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", summary)
}
