package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquiredCounter tracks successful lock acquisitions.
	AcquiredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasklock_acquired_total",
		Help: "Total number of successful lock acquisitions",
	})
	// BusyCounter tracks non-blocking acquisitions that found the lock held.
	BusyCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasklock_busy_total",
		Help: "Total number of acquisitions rejected because the lock was held",
	})
	// TimeoutCounter tracks blocking acquisitions that exhausted their wait budget.
	TimeoutCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasklock_timeout_total",
		Help: "Total number of blocking acquisitions that timed out",
	})
	// ReleasedCounter tracks lock releases.
	ReleasedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tasklock_released_total",
		Help: "Total number of lock releases",
	})
	// WaitHist observes how long blocking acquisitions waited before succeeding.
	WaitHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tasklock_wait_seconds",
		Help:    "Time spent waiting for held locks",
		Buckets: prometheus.DefBuckets,
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers tasklock metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquiredCounter, BusyCounter, TimeoutCounter, ReleasedCounter, WaitHist)
}
