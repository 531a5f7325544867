package consensus

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner executes one base clustering run: cluster the given data rows
// into k groups, returning one label per row in [1, k]. seed makes
// stochastic algorithms reproducible. Returning an error wrapping
// ErrUnavailable or ErrNonConvergence marks the slice missing without
// failing the ensemble; any other error aborts generation.
type Runner interface {
	Run(data [][]float64, algorithm string, k int, seed int64) ([]int, error)
}

// RunnerFunc adapts a plain function into a Runner.
type RunnerFunc func(data [][]float64, algorithm string, k int, seed int64) ([]int, error)

func (f RunnerFunc) Run(data [][]float64, algorithm string, k int, seed int64) ([]int, error) {
	return f(data, algorithm, k, seed)
}

// GenerateConfig controls Generate.
type GenerateConfig struct {
	// Runner executes the base clustering runs. Required.
	Runner Runner

	// Algorithms names the base algorithms handed to the runner.
	Algorithms []string

	// Ks is the candidate cluster counts. Each run covers every
	// (algorithm, k, replicate) combination.
	Ks []int

	// Replicates is the number of subsampled repeats per algorithm.
	// Default: 10.
	Replicates int

	// Subsample is the fraction of samples drawn (without replacement)
	// for each replicate, in (0, 1]. Every algorithm sees the same
	// subset within a replicate. Samples left out of the draw stay
	// Missing in that replicate's partitions. Default: 0.8.
	Subsample float64

	// Seed makes the subsample draws and the per-run seeds
	// reproducible. Default: 0.
	Seed int64

	// Workers bounds the concurrently running base runs.
	// 0 means runtime.NumCPU().
	Workers int

	// Logger receives per-slice failure warnings and progress output.
	// Default: zap.NewNop().
	Logger *zap.Logger
}

// DefaultGenerateConfig returns a GenerateConfig with reasonable
// defaults. Runner, Algorithms and Ks still have to be set.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Replicates: 10, Subsample: 0.8}
}

func applyGenerateDefaults(cfg *GenerateConfig) {
	if cfg.Replicates == 0 {
		cfg.Replicates = 10
	}
	if cfg.Subsample == 0 {
		cfg.Subsample = 0.8
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

func validateGenerateConfig(cfg *GenerateConfig) error {
	if cfg.Runner == nil {
		return ConfigError{Field: "Runner", Reason: "no base clustering runner given"}
	}
	if cfg.Replicates < 1 {
		return ConfigError{Field: "Replicates", Reason: "must be at least 1"}
	}
	if cfg.Subsample <= 0 || cfg.Subsample > 1 {
		return ConfigError{Field: "Subsample", Reason: fmt.Sprintf("fraction %v outside (0, 1]", cfg.Subsample)}
	}
	return nil
}

// Generate runs the full ensemble: every (algorithm, k, replicate)
// combination is clustered independently on that replicate's subsample
// and the resulting partitions populate a fresh assignment array. Runs
// whose error wraps ErrUnavailable or ErrNonConvergence leave their
// slice Missing and are logged at Warn; the rest of the ensemble
// proceeds. A run returning labels of the wrong length or outside
// [1, k] fails generation outright. Cancellation of ctx stops
// scheduling between runs.
func Generate(ctx context.Context, data [][]float64, cfg GenerateConfig) (*Array, error) {
	applyGenerateDefaults(&cfg)
	if err := validateGenerateConfig(&cfg); err != nil {
		return nil, err
	}
	n := len(data)
	if n == 0 {
		return nil, ConfigError{Field: "data", Reason: "no samples"}
	}
	arr, err := NewArray(n, cfg.Replicates, cfg.Algorithms, cfg.Ks)
	if err != nil {
		return nil, err
	}

	// One subset per replicate, shared across algorithms so their
	// partitions stay comparable within the replicate.
	subsets := make([][]int, cfg.Replicates)
	for rep := range subsets {
		subsets[rep] = drawSubset(n, cfg.Subsample, cfg.Seed+int64(rep))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for kPos, k := range arr.Ks() {
		for alg, name := range arr.Algorithms() {
			for rep := 0; rep < cfg.Replicates; rep++ {
				kPos, k, alg, name, rep := kPos, k, alg, name, rep
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					return runSlice(arr, data, subsets[rep], kPos, k, alg, name, rep, cfg)
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cfg.Logger.Debug("ensemble generated",
		zap.Int("samples", n),
		zap.Int("replicates", cfg.Replicates),
		zap.Int("algorithms", len(cfg.Algorithms)),
		zap.Ints("ks", cfg.Ks),
		zap.Int("missing", arr.MissingCount()),
	)
	return arr, nil
}

// runSlice executes one base clustering run and scatters its labels
// into the array. The slice's block is owned by this call alone, so no
// locking is needed.
func runSlice(arr *Array, data [][]float64, subset []int, kPos, k, alg int, name string, rep int, cfg GenerateConfig) error {
	rows := make([][]float64, len(subset))
	for p, i := range subset {
		rows[p] = data[i]
	}
	seed := cfg.Seed + int64(rep)
	labels, err := cfg.Runner.Run(rows, name, k, seed)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNonConvergence) {
			cfg.Logger.Warn("base run failed, slice left missing",
				zap.String("algorithm", name),
				zap.Int("k", k),
				zap.Int("replicate", rep),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("consensus: base run %s k=%d replicate=%d: %w", name, k, rep, err)
	}
	if len(labels) != len(subset) {
		return ShapeError{Op: "Generate", Want: len(subset), Got: len(labels), Detail: fmt.Sprintf("labels from %s k=%d replicate=%d", name, k, rep)}
	}
	column := make([]int, arr.N())
	for p, i := range subset {
		column[i] = labels[p]
	}
	if err := checkLabels(fmt.Sprintf("Generate %s k=%d replicate=%d", name, k, rep), column, k); err != nil {
		return err
	}
	return arr.SetPartition(rep, alg, kPos, column)
}

// drawSubset samples floor(frac*n) indices (at least one) without
// replacement, deterministically from the seed, returned ascending.
func drawSubset(n int, frac float64, seed int64) []int {
	size := int(frac * float64(n))
	if size < 1 {
		size = 1
	}
	if size >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	rng := rand.New(rand.NewSource(seed))
	out := append([]int(nil), rng.Perm(n)[:size]...)
	sort.Ints(out)
	return out
}
