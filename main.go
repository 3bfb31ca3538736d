// main.go - exponential sums of Q(n) = n^47 - (n-1)^47 over primes p ≡ 1 (mod 47)
// Computes S_p/sqrt(p) per prime, aggregates statistics, writes a CSV table.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ==================== COMMAND LINE INTERFACE ====================

func newRootCmd(v *viper.Viper, out io.Writer) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "expsum-hunter",
		Short: "Exponential sums for Q(n) = n^47 - (n-1)^47",
		Long: `Computes S_p = sum exp(2*pi*i*Q(n)/p) for every prime p ≡ 1 (mod 47) up to a bound,
normalizes by sqrt(p), reports summary statistics against the Weil bound and
random-matrix predictions, and writes the per-prime table as CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFromFile(v, configPath)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			hunter, err := NewExpSumHunter(cfg, out)
			if err != nil {
				return fmt.Errorf("initialization error: %w", err)
			}

			if _, _, err := hunter.Run(cmd.Context()); err != nil {
				return fmt.Errorf("runtime error: %w", err)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "expsum.yaml", "Configuration file path (missing file = defaults)")

	flags.Int("bound", DefaultBound, "Sieve bound N")
	flags.Int("outlier", DefaultOutlierPrime, "Prime excluded from the second set of statistics")
	flags.Int("workers", 0, "Worker goroutines (0=auto)")
	flags.String("output-dir", "data", "Output directory")
	flags.String("sqlite", "", "Archive results into this SQLite database")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.Bool("verbose", false, "Verbose output")

	_ = v.BindPFlag("calculation.bound", flags.Lookup("bound"))
	_ = v.BindPFlag("calculation.outlier_prime", flags.Lookup("outlier"))
	_ = v.BindPFlag("performance.max_workers", flags.Lookup("workers"))
	_ = v.BindPFlag("output.output_directory", flags.Lookup("output-dir"))
	_ = v.BindPFlag("output.sqlite_path", flags.Lookup("sqlite"))
	_ = v.BindPFlag("output.metrics_path", flags.Lookup("metrics-file"))
	_ = v.BindPFlag("output.log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("output.verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(newConfigCmd(v, &configPath, out))
	rootCmd.AddCommand(newSummarizeCmd(v, out))

	return rootCmd
}

// newConfigCmd writes the effective configuration as YAML.
func newConfigCmd(v *viper.Viper, configPath *string, out io.Writer) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFromFile(v, *configPath)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if target == "" {
				target = *configPath
			}
			if err := saveDefaultConfig(target, cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "Configuration written to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "out", "", "Destination file (defaults to --config)")
	return cmd
}

// newSummarizeCmd recomputes the statistics from a previously written table.
func newSummarizeCmd(v *viper.Viper, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [table.csv]",
		Short: "Print summary statistics for an existing table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := createDefaultConfig()
			cfg.Calculation.OutlierPrime = v.GetInt("calculation.outlier_prime")
			cfg.Output.OutputDirectory = v.GetString("output.output_directory")

			path := cfg.TablePath()
			if len(args) == 1 {
				path = args[0]
			}

			table, err := LoadTable(path)
			if err != nil {
				return err
			}

			stats := Aggregate(table, cfg.Calculation.OutlierPrime)
			fmt.Fprintf(out, "%s: N=%d mean=%.4f max=%.4f (p=%d)\n",
				path, stats.Count, stats.All.Mean, stats.All.Max, stats.All.MaxPrime)
			fmt.Fprintf(out, "excluding p=%d: N=%d mean=%.4f max=%.4f (p=%d)\n",
				stats.OutlierPrime, stats.ExcludingOutlier.Count, stats.ExcludingOutlier.Mean,
				stats.ExcludingOutlier.Max, stats.ExcludingOutlier.MaxPrime)
			return nil
		},
	}
}

// ==================== MAIN ENTRY POINT ====================
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newViper(), defaultOutput).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
