// Package worker runs queued search jobs and reports their outcomes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/squadron/internal/domain/job"
	"github.com/okian/squadron/internal/domain/search"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Runner executes one job.
type Runner interface {
	Run(ctx context.Context, j job.Job) ([]search.Ranked, error)
}

// Sink receives every outcome, successful or not.
type Sink interface {
	Record(ctx context.Context, o job.Outcome)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan job.Job
}

// Worker processes jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	runner Runner
	sink   Sink
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.OrNop().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.sink.Record(ctx, w.process(ctx, j))
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job. Failures, including panics in the runner, are
// captured in the outcome so the worker keeps going.
func (w *InMemoryWorker) process(ctx context.Context, j job.Job) (out job.Outcome) { //nolint:gocritic // hugeParam: jobs travel by value over the channel
	start := time.Now()
	metrics.AddWorkerActive(1)
	out = job.Outcome{JobID: j.ID, Name: j.Name, Strategy: j.Strategy}

	defer func() {
		if r := recover(); r != nil {
			out.Teams = nil
			out.Err = fmt.Errorf("job %s panicked: %v", j.Name, r)
		}
		out.Duration = time.Since(start)
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(out.Duration.Milliseconds()))

		if out.Err != nil {
			metrics.RecordJobFailed()
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "job_failed")
			w.logger.Error(ctx, "job failed",
				logger.String("job", j.Name),
				logger.String("strategy", j.Strategy),
				logger.Error(out.Err),
			)
			return
		}
		metrics.RecordJobProcessed()
		w.logger.Debug(ctx, "job finished",
			logger.String("job", j.Name),
			logger.Int("teams", len(out.Teams)),
			logger.Duration("took", out.Duration),
		)
	}()

	teams, err := w.runner.Run(ctx, j)
	if err != nil {
		out.Err = fmt.Errorf("run job %s: %w", j.Name, err)
		return out
	}
	out.Teams = teams
	return out
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	group   *errgroup.Group
	logger  logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses NumCPU.
func NewPool(workerCount int, queue Queue, runner Runner, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.OrNop().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, runner, sink, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	p.group = &errgroup.Group{}
	for _, w := range p.workers {
		w := w
		p.group.Go(func() error {
			w.Run(ctx)
			return nil
		})
	}
}

// Shutdown closes the queue, lets workers drain it, and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if p.group == nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-waitCtx.Done():
		for i, w := range p.workers {
			if err := w.Shutdown(waitCtx); err != nil {
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			}
		}
		return fmt.Errorf("worker pool shutdown: %w", waitCtx.Err())
	}
}
