// Package monitor implements the periodic sweep over all registered
// sources, driving the downloader whenever a source reports a positive
// release delta.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relkeeper/relkeeper/internal/obsmetrics"
	"github.com/relkeeper/relkeeper/internal/registry"
	"github.com/relkeeper/relkeeper/internal/timerutil"
)

// Monitor wraps a ReusableTimer and a SourceRegistry to sweep every
// registered source at a fixed interval.
type Monitor struct {
	registry   *registry.SourceRegistry
	downloader registry.AssetDownloader
	interval   time.Duration
	logger     *slog.Logger
	metrics    *obsmetrics.ServiceMetrics

	timer *timerutil.ReusableTimer

	mu      sync.Mutex
	running bool
}

// New constructs a Monitor that sweeps registry every interval, downloading
// matched assets via downloader.
func New(reg *registry.SourceRegistry, downloader registry.AssetDownloader, interval time.Duration, logger *slog.Logger, metrics *obsmetrics.ServiceMetrics) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		registry:   reg,
		downloader: downloader,
		interval:   interval,
		logger:     logger,
		metrics:    metrics,
		timer:      timerutil.New(),
		running:    true,
	}
}

// Start arms the timer for the configured interval to fire tick. running is
// already true from New: a Monitor is live until Shutdown, whether or not
// its periodic timer was ever armed, so a direct CheckAll (the
// InitialCollect path) works even when the periodic sweep is disabled.
func (m *Monitor) Start() {
	if err := m.timer.Start(m.interval, m.tick); err != nil {
		m.logger.Error("monitor failed to start timer", "error", err)
	}
}

// Shutdown cancels the timer. A sweep already in flight is allowed to
// complete but observes the running flag between sources and stops early.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.timer.Cancel()
}

// tick re-arms the timer first, then runs a sweep. Re-arming first bounds
// drift to one interval even when a sweep takes comparable time to the
// interval.
func (m *Monitor) tick() {
	if err := m.timer.Restart(); err != nil {
		m.logger.Error("monitor failed to rearm timer", "error", err)
	}
	m.CheckAll(context.Background())
}

// CheckAll iterates over every registered source, checking for updates and
// downloading matched assets on a positive delta. Per-source errors are
// absorbed: the sweep continues.
func (m *Monitor) CheckAll(ctx context.Context) {
	start := time.Now()
	for _, source := range m.registry.GetAll() {
		m.mu.Lock()
		running := m.running
		m.mu.Unlock()
		if !running {
			break
		}
		m.checkSource(ctx, source)
	}
	if m.metrics != nil {
		m.metrics.SweepsTotal.WithLabelValues("completed").Inc()
		m.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
}

// Check runs the single-source variant of a sweep for fullName. If fullName
// is not registered, it warns and returns.
func (m *Monitor) Check(ctx context.Context, fullName string) {
	source, err := m.registry.Get(fullName)
	if err != nil {
		m.logger.Warn("check requested for unregistered source", "repo", fullName)
		return
	}
	m.checkSource(ctx, source)
}

func (m *Monitor) checkSource(ctx context.Context, source *registry.Source) {
	if !source.CheckLatestRelease(ctx) {
		return
	}

	release := source.GetRelease()
	if m.metrics != nil {
		m.metrics.UpdatesFound.WithLabelValues(source.FullName()).Inc()
	}

	cfg := source.GetConfig()
	if err := m.downloader.Download(ctx, &cfg, release); err != nil {
		m.logger.Error("download failed",
			"repo", source.FullName(),
			"tag", release.Tag,
			"error", err,
		)
	}
}
