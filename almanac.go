// Package almanac finds the lowest location reachable from a set of seeds
// through a chain of interval-mapping stages.
//
// # Basic Usage
//
// Solve an almanac document in both modes:
//
//	s := almanac.New()
//	defer s.Close()
//
//	out, err := s.SolveString(ctx, input)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range out.Results {
//	    fmt.Printf("%s: %d\n", r.Mode, r.Minimum)
//	}
//
// # Building pipelines directly
//
//	stage := almanac.NewStage("seed-to-soil",
//	    almanac.MustRule(50, 98, 2),
//	    almanac.MustRule(52, 50, 48),
//	)
//	p := almanac.NewPipeline(stage)
//	low, err := p.MinimumReachable([]almanac.Range{almanac.MustRange(79, 14)})
package almanac

import (
	"context"
	"log/slog"
	"time"

	doc "github.com/praetorian-inc/almanac/pkg/almanac"
	"github.com/praetorian-inc/almanac/pkg/engine"
	"github.com/praetorian-inc/almanac/pkg/interval"
	"github.com/praetorian-inc/almanac/pkg/mapping"
	"github.com/praetorian-inc/almanac/pkg/solver"
	"github.com/praetorian-inc/almanac/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export commonly used types for convenience.
type (
	// Range is a half-open interval [start, start+length).
	Range = interval.Range

	// Rule maps one source interval onto a destination interval.
	Rule = mapping.Rule

	// Stage is an ordered list of rules; the first matching rule wins.
	Stage = mapping.Stage

	// Pipeline is an ordered list of stages.
	Pipeline = mapping.Pipeline

	// Almanac is a parsed document.
	Almanac = doc.Almanac

	// Mode selects points or ranges evaluation.
	Mode = solver.Mode

	// Result is the outcome of one mode.
	Result = solver.Result

	// Output is the outcome of one almanac across modes.
	Output = engine.Output
)

// Re-export modes.
const (
	ModePoints = solver.ModePoints
	ModeRanges = solver.ModeRanges
)

// Re-export sentinel errors.
var (
	ErrEmptyRange   = interval.ErrEmptyRange
	ErrOverflow     = interval.ErrOverflow
	ErrOddSeedCount = mapping.ErrOddSeedCount
	ErrInvalidRange = mapping.ErrInvalidRange
	ErrEmptyResult  = mapping.ErrEmptyResult
)

// Constructors.
var (
	NewRange    = interval.New
	MustRange   = interval.MustNew
	NewRule     = mapping.NewRule
	MustRule    = mapping.MustRule
	NewStage    = mapping.NewStage
	NewPipeline = mapping.NewPipeline
	ExpandSeeds = mapping.ExpandSeeds
)

// options holds solver configuration.
type options struct {
	workers    int
	timeout    time.Duration
	logger     *slog.Logger
	registerer prometheus.Registerer
	store      store.Store
}

// Option configures a Solver.
type Option func(*options)

// WithWorkers bounds concurrent seed evaluations. Default is one per CPU.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTimeout aborts each solve after d.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger. Default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegisterer exports solver metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithStore records every solve in s. The Solver closes s on Close.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// Solver evaluates almanacs.
type Solver struct {
	core   *engine.Core
	loader *doc.Loader
}

// New creates a Solver with the given options.
//
// Example:
//
//	s := almanac.New(almanac.WithWorkers(4), almanac.WithTimeout(time.Second))
func New(opts ...Option) *Solver {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	loader := doc.NewLoader()
	return &Solver{
		core: engine.NewCore(engine.Config{
			Solver: solver.New(solver.Config{
				Workers:    o.workers,
				Timeout:    o.timeout,
				Logger:     o.logger,
				Registerer: o.registerer,
			}),
			Loader: loader,
			Store:  o.store,
			Logger: o.logger,
		}),
		loader: loader,
	}
}

// Solve evaluates a in the given modes, or both when none are given.
func (s *Solver) Solve(ctx context.Context, a *Almanac, modes ...Mode) (*Output, error) {
	if len(modes) == 0 {
		modes = []Mode{ModePoints, ModeRanges}
	}
	return s.core.SolveAlmanac(ctx, a, modes...)
}

// SolveString parses a text document and evaluates it in both modes.
func (s *Solver) SolveString(ctx context.Context, text string) (*Output, error) {
	return s.core.Solve(ctx, engine.Input{Almanac: text})
}

// SolveFile loads a text or YAML file and evaluates it.
func (s *Solver) SolveFile(ctx context.Context, path string, modes ...Mode) (*Output, error) {
	a, err := s.loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Solve(ctx, a, modes...)
}

// SolveBuiltin evaluates an embedded almanac such as "example".
func (s *Solver) SolveBuiltin(ctx context.Context, name string, modes ...Mode) (*Output, error) {
	a, err := s.loader.LoadBuiltin(name)
	if err != nil {
		return nil, err
	}
	return s.Solve(ctx, a, modes...)
}

// Close releases solver resources.
func (s *Solver) Close() error {
	return s.core.Close()
}

// Parse reads a text almanac.
func Parse(text string) (*Almanac, error) {
	return doc.ParseTextBytes([]byte(text))
}

// LowestLocation is the single-value answer: the minimum over each seed
// mapped on its own.
func LowestLocation(a *Almanac) (int64, error) {
	return a.Pipeline.MinimumPoint(a.Seeds)
}

// LowestLocationForRanges is the range answer: seeds are read as
// (start, length) pairs.
func LowestLocationForRanges(a *Almanac) (int64, error) {
	ranges, err := mapping.ExpandSeeds(a.Seeds)
	if err != nil {
		return 0, err
	}
	return a.Pipeline.MinimumReachable(ranges)
}
