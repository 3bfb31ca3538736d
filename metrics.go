package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunMetrics holds the Prometheus metrics for a single run. They live on a
// private registry and are exported as a textfile once the run is done.
type RunMetrics struct {
	registry *prometheus.Registry

	PrimesEvaluated   prometheus.Counter
	ResiduesSummed    prometheus.Counter
	EvaluationSeconds prometheus.Histogram
	MeanMagnitude     prometheus.Gauge
	MaxMagnitude      prometheus.Gauge
	RunDuration       prometheus.Gauge
}

// NewRunMetrics creates and registers all metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &RunMetrics{
		registry: reg,
		PrimesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "expsum_primes_evaluated_total",
			Help: "Number of effective primes whose exponential sum was evaluated",
		}),
		ResiduesSummed: factory.NewCounter(prometheus.CounterOpts{
			Name: "expsum_residues_summed_total",
			Help: "Number of unit vectors accumulated across all primes",
		}),
		EvaluationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "expsum_evaluation_seconds",
			Help:    "Time spent evaluating a single prime",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		MeanMagnitude: factory.NewGauge(prometheus.GaugeOpts{
			Name: "expsum_mean_magnitude",
			Help: "Mean of |S_p|/sqrt(p) over the result table",
		}),
		MaxMagnitude: factory.NewGauge(prometheus.GaugeOpts{
			Name: "expsum_max_magnitude",
			Help: "Maximum of |S_p|/sqrt(p) over the result table",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "expsum_run_duration_seconds",
			Help: "Wall time of the evaluation phase",
		}),
	}
}

// ObservePrime records one finished evaluation.
func (m *RunMetrics) ObservePrime(r ExponentialSumResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PrimesEvaluated.Inc()
	m.ResiduesSummed.Add(float64(r.Prime))
	m.EvaluationSeconds.Observe(elapsed.Seconds())
}

// ObserveSummary records the aggregate values of a finished run.
func (m *RunMetrics) ObserveSummary(s SummaryStatistics, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MeanMagnitude.Set(s.All.Mean)
	m.MaxMagnitude.Set(s.All.Max)
	m.RunDuration.Set(elapsed.Seconds())
}

func (m *RunMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format, suitable
// for a node exporter textfile collector.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return &PersistenceError{Path: path, Op: "write metrics", Err: err}
	}
	return nil
}
