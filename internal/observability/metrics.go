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
			Namespace: "dectctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"service", "method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dectctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "route", "status"},
	)
	tailWords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectctl",
			Subsystem: "tail",
			Name:      "words_total",
			Help:      "Decoded tail words by tail identification.",
		},
		[]string{"cluster", "tail"},
	)
	tailErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectctl",
			Subsystem: "tail",
			Name:      "decode_errors_total",
			Help:      "Rejected tail words by reason.",
		},
		[]string{"cluster", "reason"},
	)
	sysinfoApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectctl",
			Subsystem: "sysinfo",
			Name:      "applied_total",
			Help:      "System information messages folded into the snapshot.",
		},
		[]string{"cluster", "kind"},
	)
	connTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectctl",
			Subsystem: "dlc",
			Name:      "transitions_total",
			Help:      "MAC connection state transitions.",
		},
		[]string{"cluster", "from", "to"},
	)
	connDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dectctl",
			Subsystem: "dlc",
			Name:      "dropped_total",
			Help:      "Indications dropped by the connection manager.",
		},
		[]string{"cluster", "reason"},
	)
	connLive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dectctl",
			Subsystem: "dlc",
			Name:      "connections",
			Help:      "Registered MAC connections.",
		},
		[]string{"cluster"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			tailWords, tailErrors, sysinfoApplied,
			connTransitions, connDropped, connLive,
		)
	})
}

func RecordHTTPRequest(service, method, route string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, route, statusLabel).Observe(duration.Seconds())
}

func RecordTailWord(cluster, tail string) {
	RegisterMetrics()
	tailWords.WithLabelValues(cluster, tail).Inc()
}

func RecordTailError(cluster, reason string) {
	RegisterMetrics()
	tailErrors.WithLabelValues(cluster, reason).Inc()
}

func RecordSystemInfo(cluster, kind string) {
	RegisterMetrics()
	sysinfoApplied.WithLabelValues(cluster, kind).Inc()
}

func RecordTransition(cluster, from, to string) {
	RegisterMetrics()
	connTransitions.WithLabelValues(cluster, from, to).Inc()
}

func RecordDrop(cluster, reason string) {
	RegisterMetrics()
	connDropped.WithLabelValues(cluster, reason).Inc()
}

func SetConnections(cluster string, n int) {
	RegisterMetrics()
	connLive.WithLabelValues(cluster).Set(float64(n))
}
