// Package metrics provides Prometheus metrics for the squadron optimizer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the optimizer.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scoring
	teamsScored   prometheus.Counter
	scoringErrors prometheus.Counter
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec

	// Search
	searchRuns      *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	teamsEvaluated  *prometheus.CounterVec
	generations     prometheus.Counter
	bestFitness     prometheus.Gauge
	catalogBuilds   prometheus.Gauge
	catalogFiltered prometheus.Gauge

	// Jobs, queue and workers
	jobsProcessed           prometheus.Counter
	jobsFailed              prometheus.Counter
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueUtilization        prometheus.Gauge
	queueEnqueueRate        prometheus.Counter
	queueDequeueRate        prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Leaderboard
	leaderboardUpdates      prometheus.Counter
	leaderboardTeams        prometheus.Gauge
	repositoryQueryLatency  prometheus.Histogram
	repositoryUpdateLatency prometheus.Histogram

	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squadron",
		subsystem:        "optimizer",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts(m.counterOpts(name, help))
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.teamsScored = auto.NewCounter(m.counterOpts("teams_scored_total", "Total number of teams scored"))
	m.scoringErrors = auto.NewCounter(m.counterOpts("scoring_errors_total", "Total number of rejected scoring calls"))
	m.cacheHits = auto.NewCounterVec(m.counterOpts("score_cache_hits_total", "Memo table hits by table"), []string{"table"})
	m.cacheMisses = auto.NewCounterVec(m.counterOpts("score_cache_misses_total", "Memo table misses by table"), []string{"table"})

	m.searchRuns = auto.NewCounterVec(m.counterOpts("search_runs_total", "Search runs by strategy and status"), []string{"strategy", "status"})
	m.searchDuration = auto.NewHistogramVec(m.histogramOpts("search_duration_milliseconds", "Search wall time in milliseconds",
		[]float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}), []string{"strategy"})
	m.teamsEvaluated = auto.NewCounterVec(m.counterOpts("search_teams_evaluated_total", "Teams evaluated by strategy"), []string{"strategy"})
	m.generations = auto.NewCounter(m.counterOpts("genetic_generations_total", "Genetic generations completed"))
	m.bestFitness = auto.NewGauge(m.gaugeOpts("genetic_best_fitness", "Best fitness of the most recent generation"))
	m.catalogBuilds = auto.NewGauge(m.gaugeOpts("catalog_builds", "Builds loaded from the catalog"))
	m.catalogFiltered = auto.NewGauge(m.gaugeOpts("catalog_candidates", "Candidates left after the most recent catalog filter"))

	m.jobsProcessed = auto.NewCounter(m.counterOpts("jobs_processed_total", "Search jobs completed successfully"))
	m.jobsFailed = auto.NewCounter(m.counterOpts("jobs_failed_total", "Search jobs that returned an error"))
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the job queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum capacity of the job queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Job queue utilization (0-1)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueue attempts"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently running a job"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time a worker spends on one job in milliseconds", m.histogramBuckets))
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Worker errors"))

	m.leaderboardUpdates = auto.NewCounter(m.counterOpts("leaderboard_updates_total", "Leaderboard improvements"))
	m.leaderboardTeams = auto.NewGauge(m.gaugeOpts("leaderboard_teams", "Distinct teams on the leaderboard"))
	m.repositoryQueryLatency = auto.NewHistogram(m.histogramOpts("repository_query_latency_milliseconds",
		"Leaderboard query latency in milliseconds", m.histogramBuckets))
	m.repositoryUpdateLatency = auto.NewHistogram(m.histogramOpts("repository_update_latency_milliseconds",
		"Leaderboard update latency in milliseconds", m.histogramBuckets))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Scoring.

// RecordTeamScored increments the scored teams counter.
func RecordTeamScored() { globalManager.teamsScored.Inc() }

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() { globalManager.scoringErrors.Inc() }

// RecordScoreCacheHit counts a memo hit for table.
func RecordScoreCacheHit(table string) { globalManager.cacheHits.WithLabelValues(table).Inc() }

// RecordScoreCacheMiss counts a memo miss for table.
func RecordScoreCacheMiss(table string) { globalManager.cacheMisses.WithLabelValues(table).Inc() }

// Search.

// RecordSearchRun counts a finished search with status "ok" or "error".
func RecordSearchRun(strategy, status string) {
	globalManager.searchRuns.WithLabelValues(strategy, status).Inc()
}

// RecordSearchDuration records search wall time in milliseconds.
func RecordSearchDuration(strategy string, ms float64) {
	globalManager.searchDuration.WithLabelValues(strategy).Observe(ms)
}

// RecordTeamsEvaluated adds n evaluated teams for strategy.
func RecordTeamsEvaluated(strategy string, n int) {
	globalManager.teamsEvaluated.WithLabelValues(strategy).Add(float64(n))
}

// RecordGeneration counts a completed generation and its best fitness.
func RecordGeneration(best float64) {
	globalManager.generations.Inc()
	globalManager.bestFitness.Set(best)
}

// UpdateCatalogBuilds sets the number of builds loaded from the catalog.
func UpdateCatalogBuilds(n int) { globalManager.catalogBuilds.Set(float64(n)) }

// UpdateCatalogCandidates sets the size of the latest filtered pool.
func UpdateCatalogCandidates(n int) { globalManager.catalogFiltered.Set(float64(n)) }

// Jobs, queue and workers.

// RecordJobProcessed increments the successful jobs counter.
func RecordJobProcessed() { globalManager.jobsProcessed.Inc() }

// RecordJobFailed increments the failed jobs counter.
func RecordJobFailed() { globalManager.jobsFailed.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive adjusts the number of busy workers by delta.
func AddWorkerActive(delta int) { globalManager.workerActiveCount.Add(float64(delta)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrorRate.Inc() }

// Leaderboard.

// RecordLeaderboardUpdate increments the leaderboard updates counter.
func RecordLeaderboardUpdate() { globalManager.leaderboardUpdates.Inc() }

// UpdateLeaderboardTeams sets the number of distinct teams tracked.
func UpdateLeaderboardTeams(count int) { globalManager.leaderboardTeams.Set(float64(count)) }

// RecordRepositoryQueryLatency records leaderboard query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordRepositoryUpdateLatency records leaderboard update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
