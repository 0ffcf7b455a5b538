package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WatchSubscribers is the number of live watch subscriptions (collection and document).
	WatchSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_subscribers",
			Help: "Number of live watch subscriptions",
		},
	)

	// AssetMutations counts asset writes by operation (create, update, delete).
	AssetMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_mutations_total",
			Help: "Total number of asset mutations by operation",
		},
		[]string{"op"},
	)
)

var (
	// Asset ids are UUIDs; collapse them so metric cardinality stays bounded.
	uuidPathSegment = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
	initOnce        sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, WatchSubscribers, AssetMutations)
	})
}

// NormalizePath reduces cardinality by replacing UUID path segments with {id}.
// E.g. /assets/6f1f…d2/events -> /assets/{id}/events.
func NormalizePath(path string) string {
	return uuidPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncWatchSubscribers increments the live subscription gauge (call on subscribe).
func IncWatchSubscribers() {
	WatchSubscribers.Inc()
}

// DecWatchSubscribers decrements the live subscription gauge (call on cancel).
func DecWatchSubscribers() {
	WatchSubscribers.Dec()
}

// IncAssetMutations increments the mutation counter for the given op (create, update, delete).
func IncAssetMutations(op string) {
	AssetMutations.WithLabelValues(op).Inc()
}
