package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ==================== VERSION & BUILD INFO ====================
const (
	Version   = "1.2.0"
	BuildDate = "2026-02-11"
)

// RunSummary is the machine-readable record of one run, written next to the
// CSV table.
type RunSummary struct {
	RunID        string            `json:"run_id"`
	Version      string            `json:"version"`
	Bound        int               `json:"bound"`
	Construction Construction      `json:"construction"`
	Workers      int               `json:"workers"`
	FirstPrime   int               `json:"first_prime"`
	LastPrime    int               `json:"last_prime"`
	StartedAt    time.Time         `json:"started_at"`
	Elapsed      string            `json:"elapsed"`
	Statistics   SummaryStatistics `json:"statistics"`
	TablePath    string            `json:"table_path"`
	BuildInfo    map[string]string `json:"build_info"`
}

// ==================== MAIN APPLICATION CONTROLLER ====================
type ExpSumHunter struct {
	config       *Config
	construction Construction
	evaluator    *ExponentialSumEvaluator
	pool         *WorkerPool
	storage      *StorageManager
	metrics      *RunMetrics
	logger       *logrus.Logger
	out          io.Writer
	runID        string
}

func NewExpSumHunter(cfg *Config, out io.Writer) (*ExpSumHunter, error) {
	logger := setupLogger(cfg.Output)

	hunter := &ExpSumHunter{
		config:       cfg,
		construction: Q47,
		logger:       logger,
		out:          out,
		runID:        uuid.NewString(),
	}

	if err := hunter.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return hunter, nil
}

func setupLogger(cfg OutputConfig) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return logger
}

func (h *ExpSumHunter) initializeComponents() error {
	h.evaluator = NewExponentialSumEvaluator(h.construction, h.logger)
	h.metrics = NewRunMetrics()

	storage, err := NewStorageManager(h.config, h.logger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	h.storage = storage

	h.pool = NewWorkerPool(h.config.Performance.MaxWorkers, h.evaluator, h.metrics,
		h.config.Output.ProgressEvery, h.logger)

	return nil
}

// Run executes the whole pipeline: sieve, filter, evaluate, aggregate and
// persist. Any error aborts the run before the table is written.
func (h *ExpSumHunter) Run(ctx context.Context) (*ResultTable, SummaryStatistics, error) {
	bound := h.config.Calculation.Bound

	primes, err := EffectivePrimes(bound, h.construction)
	if err != nil {
		return nil, SummaryStatistics{}, err
	}

	h.printStartupBanner(primes)

	start := time.Now()
	table, err := h.pool.Evaluate(ctx, primes)
	if err != nil {
		return nil, SummaryStatistics{}, fmt.Errorf("evaluation aborted: %w", err)
	}
	elapsed := time.Since(start)

	stats := Aggregate(table, h.config.Calculation.OutlierPrime)
	h.metrics.ObserveSummary(stats, elapsed)

	if err := h.persist(ctx, table, stats, primes, start, elapsed); err != nil {
		return nil, SummaryStatistics{}, err
	}

	h.printFinalStatistics(stats, elapsed)
	h.logger.Info("Run complete")
	return table, stats, nil
}

func (h *ExpSumHunter) persist(ctx context.Context, table *ResultTable, stats SummaryStatistics, primes []int, start time.Time, elapsed time.Duration) error {
	if err := h.storage.SaveTable(table); err != nil {
		return err
	}

	summary := &RunSummary{
		RunID:        h.runID,
		Version:      Version,
		Bound:        h.config.Calculation.Bound,
		Construction: h.construction,
		Workers:      h.config.Performance.MaxWorkers,
		FirstPrime:   primes[0],
		LastPrime:    primes[len(primes)-1],
		StartedAt:    start,
		Elapsed:      elapsed.String(),
		Statistics:   stats,
		TablePath:    h.storage.TablePath(),
		BuildInfo: map[string]string{
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"hostname":   getHostnameSafe(),
		},
	}
	if err := h.storage.SaveStatistics(summary); err != nil {
		return err
	}

	if path := h.config.Output.SQLitePath; path != "" {
		archive, err := OpenResultArchive(path)
		if err != nil {
			return err
		}
		defer archive.Close()
		if err := archive.SaveRun(ctx, h.runID, h.config.Calculation.Bound, h.construction, table); err != nil {
			return &PersistenceError{Path: path, Op: "archive run", Err: err}
		}
		h.logger.WithField("run_id", h.runID).Infof("Archived run to %s", path)
	}

	if path := h.config.Output.MetricsPath; path != "" {
		if err := h.metrics.WriteTextfile(path); err != nil {
			return err
		}
	}

	return nil
}

func (h *ExpSumHunter) printStartupBanner(primes []int) {
	c := h.construction
	fmt.Fprintln(h.out, strings.Repeat("=", 65))
	fmt.Fprintf(h.out, "  Exponential Sums for Q(n) = n^%d - (n-1)^%d\n", c.Exponent, c.Exponent)
	fmt.Fprintf(h.out, "  Primes p ≡ 1 (mod %d), p ≤ %d\n", c.Modulus, h.config.Calculation.Bound)
	fmt.Fprintln(h.out, strings.Repeat("=", 65))
	fmt.Fprintln(h.out)

	h.logger.Infof("Effective primes: N = %d", len(primes))
	h.logger.Infof("  Range: %d to %d", primes[0], primes[len(primes)-1])
	h.logger.Infof("  Workers: %d | Config: %s", h.config.Performance.MaxWorkers, h.config.loadedFrom)
	h.logger.Infof("  Output: %s", h.storage.TablePath())
}

func (h *ExpSumHunter) printFinalStatistics(stats SummaryStatistics, elapsed time.Duration) {
	w := h.out
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %10s\n", label+strings.Repeat(".", max(0, 30-len(label))), value)
	}
	f4 := func(x float64) string { return fmt.Sprintf("%.4f", x) }

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-30s %10s\n", "Statistic", "Value")
	fmt.Fprintln(w, strings.Repeat("-", 42))
	row("N", fmt.Sprint(stats.Count))
	row("Mean |S_p|/sqrt(p)", f4(stats.All.Mean))
	row("Max  |S_p|/sqrt(p)", f4(stats.All.Max))
	row("Max at p =", fmt.Sprint(stats.All.MaxPrime))

	ex := stats.ExcludingOutlier
	row(fmt.Sprintf("Mean (excl. p=%d)", stats.OutlierPrime), f4(ex.Mean))
	row(fmt.Sprintf("Max  (excl. p=%d)", stats.OutlierPrime), f4(ex.Max))
	if !stats.OutlierPresent {
		fmt.Fprintf(w, "  (p=%d is not in the table)\n", stats.OutlierPrime)
	}

	ref := stats.References
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reference predictions:")
	fmt.Fprintf(w, "  Weil bound:                ≤ %.0f\n", ref.WeilBound)
	fmt.Fprintf(w, "  Gaussian RW (45 vectors):  ≈ %.2f\n", ref.GaussianRandomWalk)
	fmt.Fprintf(w, "  USp(44):                   ≈ %.2f\n", ref.USp44)
	fmt.Fprintf(w, "  Observed:                  ≈ %.2f\n", stats.All.Mean)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Saved to %s (%s)\n", h.storage.TablePath(), formatDurationDetailed(elapsed))
}

// RunID identifies this run in the summary file and the archive.
func (h *ExpSumHunter) RunID() string {
	return h.runID
}

// defaultOutput is where the banner and summary go when no writer is given.
var defaultOutput io.Writer = os.Stdout
