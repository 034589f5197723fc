package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexshd/antifragile"
	"github.com/alexshd/antifragile/internal/loadgen"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Measure a running service and classify its throughput curve",
	Long: `Stress drives POST /price on a running service at each concurrency level,
then classifies measured throughput C(N) at every interior level. Convex
scaling (the cache paying off) is antifragile; saturation is fragile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		levels, _ := cmd.Flags().GetIntSlice("levels")
		duration, _ := cmd.Flags().GetDuration("duration")
		warmup, _ := cmd.Flags().GetDuration("warmup")
		epsilon, _ := cmd.Flags().GetFloat64("epsilon")
		asJSON, _ := cmd.Flags().GetBool("json")

		logger, err := newLogger(cmd, "info", "tint")
		if err != nil {
			return err
		}

		client := &http.Client{Timeout: 10 * time.Second}
		op, err := loadgen.PriceOperation(client, strings.TrimSuffix(url, "/"), loadgen.DefaultQueries())
		if err != nil {
			return err
		}

		cfg := loadgen.Config{Duration: duration, Warmup: warmup, Levels: levels}
		logger.Info("stress starting", "url", url, "levels", levels, "duration", duration)

		results, err := loadgen.Run(cmd.Context(), op, cfg)
		if err != nil {
			return err
		}

		report := buildReport(results, epsilon)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stressCmd)
	def := loadgen.DefaultConfig()
	stressCmd.Flags().String("url", "http://localhost:3000", "Base URL of the pricing service")
	stressCmd.Flags().IntSlice("levels", def.Levels, "Concurrency levels")
	stressCmd.Flags().Duration("duration", def.Duration, "Measurement time per level")
	stressCmd.Flags().Duration("warmup", def.Warmup, "Warmup time per level")
	stressCmd.Flags().Float64("epsilon", 0, "Treat throughput gaps ≤ epsilon ops/sec as robust")
	stressCmd.Flags().Bool("json", false, "Print the report as JSON")
}

type levelReport struct {
	N          int     `json:"n"`
	Operations int64   `json:"operations"`
	Errors     int64   `json:"errors"`
	Throughput float64 `json:"throughput"`
	P50Ms      float64 `json:"p50_ms"`
	P99Ms      float64 `json:"p99_ms"`
}

type stressReport struct {
	Levels          []levelReport                 `json:"levels"`
	Classifications []loadgen.LevelClassification `json:"classifications"`
	// Overall is the least favourable interior classification.
	Overall antifragile.Triad `json:"overall"`
}

func buildReport(results []loadgen.Result, epsilon float64) stressReport {
	report := stressReport{
		Levels:  make([]levelReport, 0, len(results)),
		Overall: antifragile.DefaultTriad,
	}
	for _, r := range results {
		stats := loadgen.CalculateStatistics(r)
		report.Levels = append(report.Levels, levelReport{
			N:          r.N,
			Operations: r.Operations,
			Errors:     r.Errors,
			Throughput: r.Throughput,
			P50Ms:      float64(stats.P50.Microseconds()) / 1000,
			P99Ms:      float64(stats.P99.Microseconds()) / 1000,
		})
	}

	report.Classifications = loadgen.NewCurve(results).ClassifyLevels(epsilon)
	if len(report.Classifications) > 0 {
		worst := slices.MinFunc(report.Classifications, func(a, b loadgen.LevelClassification) int {
			return a.Classification.Compare(b.Classification)
		})
		report.Overall = worst.Classification
	}
	return report
}

func printReport(w io.Writer, report stressReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "N\tOPS\tERRORS\tOPS/SEC\tP50(ms)\tP99(ms)")
	for _, l := range report.Levels {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.1f\t%.3f\t%.3f\n", l.N, l.Operations, l.Errors, l.Throughput, l.P50Ms, l.P99Ms)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	if len(report.Classifications) == 0 {
		fmt.Fprintln(w, "Need at least three levels to classify the throughput curve.")
		return
	}
	for _, c := range report.Classifications {
		fmt.Fprintf(w, "N=%g (Δ=%g): %s\n", c.N, c.Delta, c.Classification.Describe())
	}
	fmt.Fprintf(w, "Overall: %s\n", report.Overall.Describe())
}
