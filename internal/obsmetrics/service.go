package obsmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceMetrics tracks the monitor sweep, webhook intake, and downloads.
type ServiceMetrics struct {
	SweepsTotal      *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
	UpdatesFound     *prometheus.CounterVec
	WebhookRequests  *prometheus.CounterVec
	DownloadsTotal   *prometheus.CounterVec
	DownloadDuration *prometheus.HistogramVec
}

var (
	serviceMetricsInstance *ServiceMetrics
	serviceMetricsOnce     sync.Once
)

// NewServiceMetrics returns the process-wide service metrics, registering
// them with the default Prometheus registry on first call.
func NewServiceMetrics() *ServiceMetrics {
	serviceMetricsOnce.Do(func() {
		serviceMetricsInstance = &ServiceMetrics{
			SweepsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "relkeeper",
					Subsystem: "monitor",
					Name:      "sweeps_total",
					Help:      "Total number of monitor sweeps, labeled by outcome",
				},
				[]string{"outcome"},
			),
			SweepDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "relkeeper",
					Subsystem: "monitor",
					Name:      "sweep_duration_seconds",
					Help:      "Duration of a full sweep over all registered sources",
					Buckets:   prometheus.DefBuckets,
				},
			),
			UpdatesFound: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "relkeeper",
					Subsystem: "monitor",
					Name:      "updates_found_total",
					Help:      "Total number of sources where check_latest_release reported an update",
				},
				[]string{"repo"},
			),
			WebhookRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "relkeeper",
					Subsystem: "webhook",
					Name:      "requests_total",
					Help:      "Total webhook requests by outcome (accepted, ignored, forbidden, error)",
				},
				[]string{"outcome"},
			),
			DownloadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "relkeeper",
					Subsystem: "download",
					Name:      "total",
					Help:      "Total asset download attempts by repo and outcome",
				},
				[]string{"repo", "outcome"},
			),
			DownloadDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "relkeeper",
					Subsystem: "download",
					Name:      "duration_seconds",
					Help:      "Duration of an AssetDownloader.Download call",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"repo"},
			),
		}
	})
	return serviceMetricsInstance
}
