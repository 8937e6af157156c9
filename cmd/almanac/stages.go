package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/praetorian-inc/almanac/pkg/almanac"
	"github.com/praetorian-inc/almanac/pkg/engine"
	"github.com/spf13/cobra"
)

var (
	stagesBuiltin string
	stagesFormat  string
)

var stagesCmd = &cobra.Command{
	Use:   "stages [file|-]",
	Short: "List the stages of an almanac",
	Long:  "Display each stage with its rule count, and warn about rules whose source intervals overlap",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStages,
}

func init() {
	stagesCmd.Flags().StringVar(&stagesBuiltin, "builtin", "", "Use an embedded almanac")
	stagesCmd.Flags().StringVar(&stagesFormat, "format", "table", "Output format: table, json")
}

func runStages(cmd *cobra.Command, args []string) error {
	a, err := loadAlmanac(cmd, args, stagesBuiltin)
	if err != nil {
		return err
	}

	out := &engine.StagesOutput{
		Name:   a.Name,
		Digest: almanac.Digest(a),
		Seeds:  len(a.Seeds),
		Stages: almanac.Summarize(a),
	}
	for _, issue := range almanac.Validate(a) {
		out.Warnings = append(out.Warnings, issue.String())
		cmdLogger().Warn("almanac issue", "almanac", a.Name, "stage", issue.Stage, "issue", issue.Message)
	}

	// Output based on format
	switch stagesFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	case "table":
		return outputStagesTable(cmd, out)
	default:
		return fmt.Errorf("unknown output format: %s", stagesFormat)
	}
}

func outputStagesTable(cmd *cobra.Command, out *engine.StagesOutput) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "#\tStage\tRules\tOverlaps\n")
	fmt.Fprintf(w, "-\t-----\t-----\t--------\n")
	for _, s := range out.Stages {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", s.Index, s.Name, s.Rules, s.Overlaps)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d seeds, %d stages\n", out.Seeds, len(out.Stages))
	for _, warning := range out.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", warning)
	}
	return nil
}
