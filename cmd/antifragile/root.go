package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexshd/antifragile/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "antifragile",
	Short: "Classify systems as fragile, robust or antifragile",
	Long: `antifragile applies Taleb's convexity test, f(x+Δ) + f(x-Δ) vs 2·f(x),
to built-in payoff shapes, to a live pricing service and to throughput
measured under increasing concurrency.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: tint, json, text (overrides config)")
}

// newLogger builds the command logger. Flags win over the given defaults.
func newLogger(cmd *cobra.Command, level, format string) (*slog.Logger, error) {
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		format = v
	}

	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(cmd.ErrOrStderr(), lvl, format), nil
}
