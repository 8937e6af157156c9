package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/praetorian-inc/almanac/pkg/almanac"
	"github.com/praetorian-inc/almanac/pkg/engine"
	"github.com/praetorian-inc/almanac/pkg/solver"
	"github.com/praetorian-inc/almanac/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var errNoInput = errors.New("an almanac file, \"-\" for stdin, or --builtin is required")

// loadAlmanac resolves the positional file argument or a builtin name.
func loadAlmanac(cmd *cobra.Command, args []string, builtin string) (*almanac.Almanac, error) {
	loader := almanac.NewLoader()

	switch {
	case builtin != "" && len(args) > 0:
		return nil, fmt.Errorf("use either a file or --builtin, not both")
	case builtin != "":
		return loader.LoadBuiltin(builtin)
	case len(args) == 0:
		return nil, errNoInput
	case args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		a, err := loader.Parse(data, almanac.FormatText)
		if err != nil {
			return nil, fmt.Errorf("parsing stdin: %w", err)
		}
		a.Name = "stdin"
		return a, nil
	default:
		return loader.LoadFile(args[0])
	}
}

// resolve returns the flag value when set, else the configured one.
func resolve[T comparable](flag, configured T) T {
	var zero T
	if flag != zero {
		return flag
	}
	return configured
}

// newCore builds an engine from flags and config. dbPath "" disables history.
func newCore(workers int, timeout time.Duration, dbPath string, reg prometheus.Registerer) (*engine.Core, error) {
	log := cmdLogger()

	var st store.Store
	if dbPath != "" {
		s, err := store.New(store.Config{Path: dbPath})
		if err != nil {
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		st = s
		log.Debug("run history enabled", "path", dbPath)
	}

	return engine.NewCore(engine.Config{
		Solver: solver.New(solver.Config{
			Workers:    resolve(workers, cfg.Workers),
			Timeout:    resolve(timeout, cfg.Timeout),
			Logger:     log,
			Registerer: reg,
		}),
		Store:  st,
		Logger: log,
	}), nil
}
