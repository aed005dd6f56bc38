package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relkeeper/relkeeper/internal/obsmetrics"
	"github.com/relkeeper/relkeeper/internal/registry"
)

// Policy configures the per-repository retry loop in fetchViaAPI.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy matches the spec's suggested defaults: 10 attempts, 60s
// fixed delay between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 10, Delay: 60 * time.Second}
}

// pendingSignal pairs a cancellation func with a token identifying which
// dispatch installed it, so a completing task only clears its own entry and
// never a newer one that has since replaced it.
type pendingSignal struct {
	cancel context.CancelFunc
	token  *int
}

// dispatcher owns the per-repo cancellation-signal map and the worker pool
// that runs fetch-via-API retry loops. The map is written from the HTTP
// handler goroutine (dispatch), from worker goroutines (clearSignal) and at
// shutdown, always under mu.
type dispatcher struct {
	registry   *registry.SourceRegistry
	downloader registry.AssetDownloader
	policy     Policy
	logger     *slog.Logger
	metrics    *obsmetrics.ServiceMetrics
	pool       *workerPool

	mu      sync.Mutex
	signals map[string]pendingSignal
}

func newDispatcher(reg *registry.SourceRegistry, downloader registry.AssetDownloader, policy Policy, poolSize int, logger *slog.Logger, metrics *obsmetrics.ServiceMetrics) *dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcher{
		registry:   reg,
		downloader: downloader,
		policy:     policy,
		logger:     logger,
		metrics:    metrics,
		pool:       newWorkerPool(poolSize, logger),
		signals:    make(map[string]pendingSignal),
	}
}

func (d *dispatcher) start(poolSize int) {
	d.pool.start(poolSize)
}

func (d *dispatcher) shutdown() {
	d.mu.Lock()
	for _, sig := range d.signals {
		sig.cancel()
	}
	d.signals = make(map[string]pendingSignal)
	d.mu.Unlock()

	d.pool.drain()
}

// dispatch hands fullName off to the worker pool asynchronously. Any
// previously pending retry task for the same repo is cancelled first: the
// newest request wins.
func (d *dispatcher) dispatch(fullName string) {
	ctx, cancel := context.WithCancel(context.Background())
	token := new(int)

	d.mu.Lock()
	if previous, ok := d.signals[fullName]; ok {
		previous.cancel()
	}
	d.signals[fullName] = pendingSignal{cancel: cancel, token: token}
	d.mu.Unlock()

	d.pool.submit(task{
		ctx:      ctx,
		fullName: fullName,
		run: func(ctx context.Context) {
			defer d.clearSignal(fullName, token)
			d.fetchViaAPI(ctx, fullName)
		},
	})
}

// clearSignal removes the cancellation entry for fullName, but only if it is
// still the one this task installed: a newer dispatch may already have
// replaced it.
func (d *dispatcher) clearSignal(fullName string, mine *int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := d.signals[fullName]
	if ok && current.token == mine {
		delete(d.signals, fullName)
	}
}

// fetchViaAPI is the retry wrapper around a single source's
// check_latest_release + download. It stops on attempt exhaustion or
// cancellation, whichever comes first, and never surfaces an error to the
// caller: the HTTP response was already sent.
func (d *dispatcher) fetchViaAPI(ctx context.Context, fullName string) {
	logger := d.logger.With("repo", fullName)

	source, err := d.registry.Get(fullName)
	if err != nil {
		logger.Warn("dispatch requested for unregistered source")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			logger.Info("retry loop cancelled by newer webhook delivery", "attempt", attempt)
			return
		}

		if source.CheckLatestRelease(ctx) {
			release := source.GetRelease()
			cfg := source.GetConfig()
			if err := d.downloader.Download(ctx, &cfg, release); err != nil {
				logger.Error("download failed", "tag", release.Tag, "error", err)
			}
			return
		}

		lastErr = errAssetsNotAvailable
		if attempt == d.policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			logger.Info("retry loop cancelled by newer webhook delivery", "attempt", attempt)
			return
		case <-time.After(d.policy.Delay):
		}
	}

	logger.Error("retry attempts exhausted", "attempts", d.policy.MaxAttempts, "error", lastErr)
}
