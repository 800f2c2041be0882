package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/report"
)

// JobProcessor runs one report job. *Processor implements it.
type JobProcessor interface {
	Process(ctx context.Context, job ReportJob) (*report.Report, error)
}

// PoolConfig holds configuration for a Pool.
type PoolConfig struct {
	Processor JobProcessor
	Logger    zerolog.Logger

	// Concurrency is the number of jobs run at once. Default: 2
	Concurrency int
}

// Pool runs batches of report jobs on a fixed number of workers.
type Pool struct {
	processor   JobProcessor
	logger      zerolog.Logger
	concurrency int
	stats       *PoolStats
}

// PoolStats are cumulative counters over every batch a pool has run.
type PoolStats struct {
	mu sync.RWMutex

	Batches       int64
	Succeeded     int64
	Failed        int64
	LastBatchAt   time.Time
	LastDuration  time.Duration
	TotalDuration time.Duration
}

// NewPool creates a Pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Pool{
		processor:   cfg.Processor,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		stats:       &PoolStats{},
	}
}

// BatchResult is the outcome of one batch.
type BatchResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Total     int
	Succeeded int
	Failed    int

	// Reports are the stored reports in completion order.
	Reports []*report.Report
	Errors  []JobError
}

// JobError is the failure of one job of a batch.
type JobError struct {
	JobID     string
	Error     string
	Permanent bool
}

type jobResult struct {
	job    ReportJob
	report *report.Report
	err    error
}

// Run processes jobs and waits for all of them. Jobs not started before ctx
// is cancelled are reported as failed.
func (p *Pool) Run(ctx context.Context, jobs []ReportJob) *BatchResult {
	start := time.Now()
	result := &BatchResult{StartTime: start, Total: len(jobs)}

	p.logger.Info().
		Int("jobs", len(jobs)).
		Int("concurrency", p.concurrency).
		Msg("starting report batch")

	queue := make(chan ReportJob, len(jobs))
	results := make(chan jobResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx, queue, results)
		}()
	}

	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, JobError{
				JobID:     r.job.JobID,
				Error:     r.err.Error(),
				Permanent: Permanent(r.err),
			})
			continue
		}
		result.Succeeded++
		result.Reports = append(result.Reports, r.report)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	p.updateStats(result)

	p.logger.Info().
		Dur("duration", result.Duration).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("report batch completed")
	return result
}

func (p *Pool) work(ctx context.Context, queue <-chan ReportJob, results chan<- jobResult) {
	for job := range queue {
		if err := ctx.Err(); err != nil {
			results <- jobResult{job: job, err: err}
			continue
		}
		rep, err := p.processor.Process(ctx, job)
		if err != nil {
			p.logger.Error().Err(err).Str("job_id", job.JobID).Msg("report job failed")
		}
		results <- jobResult{job: job, report: rep, err: err}
	}
}

func (p *Pool) updateStats(r *BatchResult) {
	p.stats.mu.Lock()
	defer p.stats.mu.Unlock()

	p.stats.Batches++
	p.stats.Succeeded += int64(r.Succeeded)
	p.stats.Failed += int64(r.Failed)
	p.stats.LastBatchAt = r.EndTime
	p.stats.LastDuration = r.Duration
	p.stats.TotalDuration += r.Duration
}

// Stats returns a copy of the cumulative counters.
func (p *Pool) Stats() PoolStats {
	p.stats.mu.RLock()
	defer p.stats.mu.RUnlock()

	return PoolStats{
		Batches:       p.stats.Batches,
		Succeeded:     p.stats.Succeeded,
		Failed:        p.stats.Failed,
		LastBatchAt:   p.stats.LastBatchAt,
		LastDuration:  p.stats.LastDuration,
		TotalDuration: p.stats.TotalDuration,
	}
}
