package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Boot and request metrics, registered with the default Prometheus registry.
var (
	// BootDuration measures a complete boot sequence, successful or not.
	BootDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kestrel",
			Subsystem: "bootstrap",
			Name:      "boot_duration_seconds",
			Help:      "Time taken to boot the application",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	// BootsTotal counts boot attempts.
	// Labels:
	//   - result: "success", "already_booted" or "failure"
	BootsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "bootstrap",
			Name:      "boots_total",
			Help:      "Total number of boot attempts",
		},
		[]string{"result"},
	)

	// BootFailures counts failed boots by the phase that failed.
	BootFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "bootstrap",
			Name:      "boot_failures_total",
			Help:      "Total number of failed boots by phase",
		},
		[]string{"phase"},
	)

	ShutdownsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "bootstrap",
			Name:      "shutdowns_total",
			Help:      "Total number of shutdowns",
		},
		[]string{"result"},
	)

	ContainerBindings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "container",
			Name:      "bindings",
			Help:      "Number of bindings in the live container",
		},
	)

	CompiledRoutes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kestrel",
			Subsystem: "router",
			Name:      "compiled_routes",
			Help:      "Number of routes in the compiled routing table",
		},
	)

	// RequestsTotal counts dispatched requests.
	// Labels:
	//   - method: HTTP method
	//   - status: response status code class ("2xx", "4xx", ...)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Total number of dispatched requests",
		},
		[]string{"method", "status"},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kestrel",
			Subsystem: "dispatch",
			Name:      "request_duration_seconds",
			Help:      "Time taken to handle dispatched requests",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ScheduledJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kestrel",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs",
		},
		[]string{"job", "result"},
	)
)

// StatusClass maps an HTTP status code to its class label.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
