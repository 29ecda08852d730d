package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playernet",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "playernet",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	packetDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "playernet",
			Subsystem: "packet",
			Name:      "duration_seconds",
			Help:      "Time spent handling or sending one packet.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"direction", "kind"},
	)
	packetOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playernet",
			Subsystem: "packet",
			Name:      "outcomes_total",
			Help:      "Packets by direction, kind and outcome.",
		},
		[]string{"direction", "kind", "outcome"},
	)
	diagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playernet",
			Subsystem: "session",
			Name:      "diagnostics_total",
			Help:      "Advisory diagnostics emitted by sessions.",
		},
		[]string{"node"},
	)
	transportPuts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playernet",
			Subsystem: "transport",
			Name:      "puts_total",
			Help:      "Messages queued on the transport.",
		},
		[]string{"kind", "immediate", "skip_interception"},
	)
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "playernet",
			Subsystem: "session",
			Name:      "active",
			Help:      "Connected sessions.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			packetDuration,
			packetOutcomes,
			diagnostics,
			transportPuts,
			sessionsActive,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordPacketDuration(direction, kind string, duration time.Duration) {
	RegisterMetrics()
	packetDuration.WithLabelValues(direction, kind).Observe(duration.Seconds())
}

func RecordPacketOutcome(direction, kind, outcome string) {
	RegisterMetrics()
	packetOutcomes.WithLabelValues(direction, kind, outcome).Inc()
}

func RecordDiagnostic(node string) {
	RegisterMetrics()
	diagnostics.WithLabelValues(node).Inc()
}

func RecordTransportPut(kind string, immediate, skipInterception bool) {
	RegisterMetrics()
	transportPuts.WithLabelValues(kind, strconv.FormatBool(immediate), strconv.FormatBool(skipInterception)).Inc()
}

func SetActiveSessions(n int) {
	RegisterMetrics()
	sessionsActive.Set(float64(n))
}
