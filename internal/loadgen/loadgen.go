// Package loadgen drives an operation at increasing concurrency and turns the
// measured throughput into a system that can be classified.
//
// Each level runs a warmup phase followed by a timed measurement phase with N
// workers calling the operation in a loop until the phase deadline:
//
//	levels [1, 2, 4, 8] → throughput C(1), C(2), C(4), C(8)
//
// Curve interpolates C between the measured levels, so the convexity test can
// ask whether throughput bends up (antifragile), stays straight (robust) or
// flattens out (fragile) as concurrency rises.
package loadgen

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Operation is one unit of load. It must be safe for concurrent calls.
type Operation func(ctx context.Context) error

// Result contains measurements from a single concurrency level.
type Result struct {
	N          int             // Number of concurrent workers
	Duration   time.Duration   // Measured wall time
	Operations int64           // Successful operations
	Throughput float64         // Successful operations per second
	Latencies  []time.Duration // Latency of every successful operation
	Errors     int64           // Failed operations
}

// Statistics contains latency percentiles for one Result.
type Statistics struct {
	Mean   time.Duration
	Stddev time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
}

// Config controls a run.
type Config struct {
	Duration time.Duration // Measurement time per level
	Warmup   time.Duration // Unmeasured time per level before Duration
	Levels   []int         // Concurrency levels, in run order
}

// DefaultConfig returns 5s measurements after a 1s warmup at 1, 2, 4, 8 and
// 16 workers.
func DefaultConfig() Config {
	return Config{
		Duration: 5 * time.Second,
		Warmup:   1 * time.Second,
		Levels:   []int{1, 2, 4, 8, 16},
	}
}

// Run executes op at every level in cfg.Levels.
func Run(ctx context.Context, op Operation, cfg Config) ([]Result, error) {
	if len(cfg.Levels) == 0 {
		return nil, fmt.Errorf("no concurrency levels")
	}

	results := make([]Result, 0, len(cfg.Levels))
	for _, n := range cfg.Levels {
		if n <= 0 {
			return nil, fmt.Errorf("invalid concurrency level %d", n)
		}

		result, err := runAtLevel(ctx, op, n, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed at N=%d: %w", n, err)
		}
		results = append(results, result)
	}

	return results, nil
}

func runAtLevel(ctx context.Context, op Operation, n int, cfg Config) (Result, error) {
	if cfg.Warmup > 0 {
		warmupCtx, cancel := context.WithTimeout(ctx, cfg.Warmup)
		_, err := runPhase(warmupCtx, op, n)
		cancel()
		if err != nil {
			return Result{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	measureCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	result, err := runPhase(measureCtx, op, n)
	if err != nil {
		return Result{}, err
	}
	// A parent cancel during measurement makes the numbers meaningless.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return result, nil
}

func runPhase(ctx context.Context, op Operation, n int) (Result, error) {
	var (
		operations atomic.Int64
		errs       atomic.Int64
		latencies  = make([][]time.Duration, n)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	start := time.Now()
	for i := 0; i < n; i++ {
		worker := i
		latencies[worker] = make([]time.Duration, 0, 1000)

		g.Go(func() error {
			for gctx.Err() == nil {
				opStart := time.Now()
				err := op(gctx)
				opDuration := time.Since(opStart)

				if err != nil {
					errs.Add(1)
					continue
				}
				operations.Add(1)
				latencies[worker] = append(latencies[worker], opDuration)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)

	all := make([]time.Duration, 0, operations.Load())
	for _, l := range latencies {
		all = append(all, l...)
	}

	return Result{
		N:          n,
		Duration:   elapsed,
		Operations: operations.Load(),
		Throughput: float64(operations.Load()) / elapsed.Seconds(),
		Latencies:  all,
		Errors:     errs.Load(),
	}, nil
}

// CalculateStatistics computes mean, standard deviation and percentiles.
func CalculateStatistics(result Result) Statistics {
	if len(result.Latencies) == 0 {
		return Statistics{}
	}

	sorted := slices.Clone(result.Latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean := sum / time.Duration(len(sorted))

	var variance float64
	for _, lat := range sorted {
		diff := float64(lat - mean)
		variance += diff * diff
	}
	stddev := time.Duration(math.Sqrt(variance / float64(len(sorted))))

	return Statistics{
		Mean:   mean,
		Stddev: stddev,
		P50:    sorted[len(sorted)*50/100],
		P95:    sorted[len(sorted)*95/100],
		P99:    sorted[len(sorted)*99/100],
	}
}
