package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexshd/antifragile"
)

var shapes = map[string]func(float64) float64{
	"square": func(x float64) float64 { return x * x },
	"sqrt":   func(x float64) float64 { return math.Sqrt(math.Abs(x)) },
	"linear": func(x float64) float64 { return 2*x + 1 },
	"cube":   func(x float64) float64 { return x * x * x },
	"log":    math.Log,
	"exp":    math.Exp,
}

func shapeNames() []string {
	names := make([]string, 0, len(shapes))
	for name := range shapes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var classifyCmd = &cobra.Command{
	Use:   "classify <shape>",
	Short: "Classify a built-in payoff shape",
	Long: `Classify applies the convexity test to a built-in payoff at --at with
perturbation --delta. Shapes: ` + strings.Join(shapeNames(), ", ") + `.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: shapeNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetFloat64("at")
		delta, _ := cmd.Flags().GetFloat64("delta")
		epsilon, _ := cmd.Flags().GetFloat64("epsilon")
		asJSON, _ := cmd.Flags().GetBool("json")

		return runClassify(cmd.OutOrStdout(), args[0], at, delta, epsilon, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().Float64("at", 1, "Operating point x")
	classifyCmd.Flags().Float64("delta", 0.1, "Perturbation Δ")
	classifyCmd.Flags().Float64("epsilon", 0, "Treat |sum - twin| ≤ epsilon as robust")
	classifyCmd.Flags().Bool("json", false, "Print the result as JSON")
}

type classifyResult struct {
	Shape          string            `json:"shape"`
	At             float64           `json:"at"`
	Delta          float64           `json:"delta"`
	Epsilon        float64           `json:"epsilon,omitempty"`
	Minus          float64           `json:"minus"`
	Value          float64           `json:"value"`
	Plus           float64           `json:"plus"`
	Sum            float64           `json:"sum"`
	Twin           float64           `json:"twin"`
	Gap            float64           `json:"gap"`
	Classification antifragile.Triad `json:"classification"`
	Curvature      string            `json:"curvature"`
}

func classifyShape(shape string, at, delta, epsilon float64) (classifyResult, error) {
	f, ok := shapes[shape]
	if !ok {
		return classifyResult{}, fmt.Errorf("unknown shape %q (expected one of %s)", shape, strings.Join(shapeNames(), ", "))
	}
	if delta < 0 || epsilon < 0 {
		return classifyResult{}, fmt.Errorf("delta and epsilon must be non-negative")
	}

	c := antifragile.Probe[float64, float64](antifragile.Func(f), at, delta)
	if math.IsNaN(c.Sum) || math.IsNaN(c.Twin) {
		return classifyResult{}, fmt.Errorf("%s is undefined around x=%g with Δ=%g", shape, at, delta)
	}

	t := c.ClassifyWithin(epsilon)
	return classifyResult{
		Shape:          shape,
		At:             at,
		Delta:          delta,
		Epsilon:        epsilon,
		Minus:          c.Minus,
		Value:          c.At,
		Plus:           c.Plus,
		Sum:            c.Sum,
		Twin:           c.Twin,
		Gap:            c.Gap(),
		Classification: t,
		Curvature:      t.Shape(),
	}, nil
}

func runClassify(w io.Writer, shape string, at, delta, epsilon float64, asJSON bool) error {
	res, err := classifyShape(shape, at, delta, epsilon)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "%s at x=%g, Δ=%g\n", res.Shape, res.At, res.Delta)
	fmt.Fprintf(w, "  f(x-Δ) = %.6g\n  f(x)   = %.6g\n  f(x+Δ) = %.6g\n", res.Minus, res.Value, res.Plus)
	fmt.Fprintf(w, "  f(x+Δ) + f(x-Δ) = %.6g vs 2·f(x) = %.6g (gap %.3g)\n", res.Sum, res.Twin, res.Gap)
	fmt.Fprintf(w, "→ %s (%s)\n", res.Classification.Describe(), res.Curvature)
	return nil
}
