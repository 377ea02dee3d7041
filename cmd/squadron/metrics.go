package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/okian/squadron/pkg/logger"
	"github.com/okian/squadron/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// metricsServer exposes /metrics while a long search runs.
type metricsServer struct {
	srv    *http.Server
	group  *errgroup.Group
	cancel context.CancelFunc
	log    logger.Logger
}

func startMetricsServer(ctx context.Context, addr string, log logger.Logger) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	m := &metricsServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout},
		group:  group,
		cancel: cancel,
		log:    log,
	}

	group.Go(func() error {
		log.Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		startSystemMetricsUpdater(ctx)
		return nil
	})
	return m
}

// Shutdown stops the server and the updater.
func (m *metricsServer) Shutdown(ctx context.Context) error {
	err := m.srv.Shutdown(ctx)
	m.cancel()
	if werr := m.group.Wait(); werr != nil {
		m.log.Error(ctx, "metrics server failed", logger.Error(werr))
		return werr
	}
	return err
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	updateSystemMetrics()

	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
