// Package service wires scoring, search strategies, the job queue, the
// worker pool and the team leaderboard together.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	jobqueue "github.com/okian/squadron/internal/adapters/mq/queue"
	workerpool "github.com/okian/squadron/internal/adapters/mq/worker"
	repository "github.com/okian/squadron/internal/adapters/repository"
	"github.com/okian/squadron/internal/domain/dedupe"
	"github.com/okian/squadron/internal/domain/job"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/scoring"
	"github.com/okian/squadron/internal/domain/search"
	"github.com/okian/squadron/internal/domain/types"
	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

type waiter struct {
	ch      chan job.Outcome
	version string
}

// Service runs searches directly or as batches on a worker pool and keeps
// a leaderboard of every team it has produced.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine      *scoring.Engine
	leaderboard *repository.TreapStore
	jobQueue    *jobqueue.InMemoryQueue
	workerPool  *workerpool.Pool

	// Configuration
	workerCount         int
	queueSize           int
	scoreCacheSize      int
	leaderboardCapacity int

	// Outcome delivery for RunBatch, keyed by job id.
	pendingMu sync.Mutex
	pending   map[string]waiter

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithScoreCacheSize sets the size of each scoring memo table.
func WithScoreCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.scoreCacheSize = size
		}
	}
}

// WithLeaderboardCapacity bounds the number of teams kept on the leaderboard.
func WithLeaderboardCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardCapacity = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Score and Search work right away; RunBatch
// needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      1024,
		scoreCacheSize: scoring.DefaultCacheSize,
		pending:        make(map[string]waiter),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.OrNop().Named("service")
	}
	s.engine = scoring.NewEngine(scoring.WithCacheSize(s.scoreCacheSize))
	s.leaderboard = repository.NewTreapStore(repository.WithCapacity(s.leaderboardCapacity))
	return s
}

// Start creates the queue and launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s, s)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("score_cache_size", s.scoreCacheSize),
	)
	return nil
}

// Stop drains queued jobs and waits for the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	err := s.workerPool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
		return fmt.Errorf("stop service: %w", err)
	}
	s.logger.Info(ctx, "service stopped")
	return nil
}

// Score evaluates one team.
func (s *Service) Score(ctx context.Context, team model.Team, cfg *scoring.Config) (scoring.Result, error) {
	return s.engine.Score(ctx, team, cfg)
}

// Search runs one strategy synchronously and records its teams.
func (s *Service) Search(ctx context.Context, strategy string, params search.Params, req search.Request) ([]search.Ranked, error) { //nolint:gocritic // hugeParam: request is a plain value
	j := job.New("", strategy, params, req)
	teams, err := s.Run(ctx, j)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, j.ID, strategy, req.Config.Version(), teams)
	return teams, nil
}

// Run implements worker.Runner.
func (s *Service) Run(ctx context.Context, j job.Job) ([]search.Ranked, error) { //nolint:gocritic // hugeParam: jobs travel by value
	strat, err := search.New(j.Strategy, s.engine, j.Params)
	if err != nil {
		return nil, err
	}
	return strat.Search(ctx, j.Request)
}

// Record implements worker.Sink: successful teams go to the leaderboard
// and the outcome is handed to the waiting batch, if any.
func (s *Service) Record(ctx context.Context, o job.Outcome) { //nolint:gocritic // hugeParam: outcomes travel by value
	s.pendingMu.Lock()
	w, ok := s.pending[o.JobID]
	delete(s.pending, o.JobID)
	s.pendingMu.Unlock()

	if o.OK() {
		s.publish(ctx, o.JobID, o.Strategy, w.version, o.Teams)
	}
	if ok {
		w.ch <- o
	}
}

// RunBatch submits jobs to the worker pool and waits for all of them.
// Outcomes come back in submission order. A failing job only affects its
// own Outcome; the error return is reserved for ctx and lifecycle failures.
func (s *Service) RunBatch(ctx context.Context, jobs []job.Job) ([]job.Outcome, error) {
	s.mu.RLock()
	started := s.started
	q := s.jobQueue
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	outcomes := make([]job.Outcome, len(jobs))
	waits := make([]chan job.Outcome, len(jobs))
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(len(jobs)))

	defer func() {
		s.pendingMu.Lock()
		for _, j := range jobs {
			delete(s.pending, j.ID)
		}
		s.pendingMu.Unlock()
	}()

	jobs = append([]job.Job(nil), jobs...)
	for i, j := range jobs {
		if j.ID == "" {
			j.ID = strconv.Itoa(i) + "-" + j.Name
			jobs[i] = j
		}
		if seen.SeenAndRecord(ctx, j.ID) {
			outcomes[i] = failed(j, ErrDuplicateJob)
			continue
		}

		ch := make(chan job.Outcome, 1)
		w := waiter{ch: ch}
		if j.Request.Config != nil {
			w.version = j.Request.Config.Version()
		}
		s.pendingMu.Lock()
		s.pending[j.ID] = w
		s.pendingMu.Unlock()

		if !q.Enqueue(ctx, j) {
			s.pendingMu.Lock()
			delete(s.pending, j.ID)
			s.pendingMu.Unlock()
			// A rejected id may be resubmitted later in the same batch.
			seen.Forget(ctx, j.ID)
			outcomes[i] = failed(j, ErrQueueFull)
			continue
		}
		waits[i] = ch
	}

	for i, ch := range waits {
		if ch == nil {
			continue
		}
		select {
		case o := <-ch:
			outcomes[i] = o
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for batch: %w", ctx.Err())
		}
	}

	failures := 0
	for _, o := range outcomes {
		if !o.OK() {
			failures++
		}
	}
	s.logger.Info(ctx, "batch finished",
		logger.Int("jobs", len(jobs)),
		logger.Int("failed", failures),
	)
	return outcomes, nil
}

func failed(j job.Job, err error) job.Outcome { //nolint:gocritic // hugeParam: jobs travel by value
	metrics.RecordJobFailed()
	return job.Outcome{JobID: j.ID, Name: j.Name, Strategy: j.Strategy, Err: fmt.Errorf("job %s: %w", j.Name, err)}
}

func (s *Service) publish(ctx context.Context, jobID, strategy, version string, teams []search.Ranked) {
	for _, r := range teams {
		meta := repository.Meta{
			Archetypes:     r.Team.Archetypes(),
			Labels:         r.Team.Labels(),
			Strategy:       strategy,
			JobID:          jobID,
			WeightsVersion: version,
		}
		if _, err := s.leaderboard.UpdateBest(ctx, TeamKey(r.Team), r.Result.TotalScore, meta); err != nil {
			s.logger.Warn(ctx, "leaderboard update failed", logger.Error(err))
		}
	}
}

// TeamKey is the leaderboard key of a team: a short hash of its
// order-independent fingerprint.
func TeamKey(team model.Team) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(team.Fingerprint()))
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	entries, err := s.leaderboard.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = toEntry(e)
	}
	return out, nil
}

// Rank returns the leaderboard entry for a team key.
func (s *Service) Rank(ctx context.Context, key string) (types.Entry, error) {
	e, err := s.leaderboard.Rank(ctx, key)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(e), nil
}

func toEntry(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:       e.Rank,
		Key:        e.Key,
		Score:      e.Score,
		Archetypes: e.Meta.Archetypes,
		Labels:     e.Meta.Labels,
		Strategy:   e.Meta.Strategy,
		JobID:      e.Meta.JobID,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"scoreCacheSize": s.scoreCacheSize,
		"cachedEntries":  s.engine.CacheLen(),
		"teams":          s.leaderboard.Count(ctx),
	}

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(ctx)
	}
	return stats
}
