package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ==================== WORKER POOL ====================

// WorkerPool evaluates primes on a fixed number of goroutines. Each result is
// stored at the index of its prime, so the merged table keeps input order.
type WorkerPool struct {
	workers       int
	evaluator     *ExponentialSumEvaluator
	logger        *logrus.Logger
	metrics       *RunMetrics
	progressEvery int

	completed atomic.Int64
}

type job struct {
	index int
	prime int
}

func NewWorkerPool(workers int, evaluator *ExponentialSumEvaluator, metrics *RunMetrics, progressEvery int, logger *logrus.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if progressEvery < 1 {
		progressEvery = 1
	}
	return &WorkerPool{
		workers:       workers,
		evaluator:     evaluator,
		logger:        logger,
		metrics:       metrics,
		progressEvery: progressEvery,
	}
}

// Evaluate runs every prime through the evaluator. The first error cancels
// the remaining work and is returned; no partial table is produced.
func (p *WorkerPool) Evaluate(ctx context.Context, primes []int) (*ResultTable, error) {
	p.completed.Store(0)

	results := make([]ExponentialSumResult, len(primes))
	workers := p.workers
	if workers > len(primes) {
		workers = len(primes)
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, workers*2)

	g.Go(func() error {
		defer close(jobs)
		for i, prime := range primes {
			select {
			case jobs <- job{index: i, prime: prime}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		workerID := w
		g.Go(func() error {
			for j := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				res, err := p.evaluator.Evaluate(j.prime)
				if err != nil {
					p.logger.WithFields(logrus.Fields{
						"worker": workerID,
						"prime":  j.prime,
					}).Errorf("Evaluation failed: %v", err)
					return fmt.Errorf("worker %d: %w", workerID, err)
				}
				results[j.index] = res
				p.metrics.ObservePrime(res, time.Since(start))
				p.reportProgress(res, len(primes))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ResultTable{Results: results}, nil
}

// reportProgress logs the first completion and every progressEvery-th one.
func (p *WorkerPool) reportProgress(res ExponentialSumResult, total int) {
	done := p.completed.Add(1)
	if done != 1 && done%int64(p.progressEvery) != 0 {
		return
	}
	p.logger.WithFields(logrus.Fields{
		"done":  fmt.Sprintf("%d/%d", done, total),
		"prime": res.Prime,
	}).Infof("|S_p|/sqrt(p) = %.4f", res.Magnitude)
}
