package main

import (
	"fmt"

	"github.com/praetorian-inc/almanac/pkg/almanac"
	"github.com/spf13/cobra"
)

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List embedded almanacs",
	Args:  cobra.NoArgs,
	RunE:  runBuiltins,
}

func runBuiltins(cmd *cobra.Command, args []string) error {
	names, err := almanac.NewLoader().ListBuiltin()
	if err != nil {
		return fmt.Errorf("listing builtins: %w", err)
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
