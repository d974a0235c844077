// Package metrics exposes Prometheus collectors for the bill controllers and
// the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billed"

// Outcome label values.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultRejected = "rejected"
	ResultStale    = "stale"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	billLists = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bills",
			Name:      "list_total",
			Help:      "Bill list fetches by result.",
		},
		[]string{"result"},
	)

	receiptUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receipt",
			Name:      "uploads_total",
			Help:      "Receipt file selections by result.",
		},
		[]string{"result"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bills",
			Name:      "submissions_total",
			Help:      "Background bill updates by result.",
		},
		[]string{"result"},
	)

	lastSubmission = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bills",
			Name:      "last_submission_timestamp_seconds",
			Help:      "Unix time of the last settled bill update by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Live browser sessions.",
		},
	)
)

func init() {
	Registry.MustRegister(
		billLists,
		receiptUploads,
		submissions,
		lastSubmission,
		httpRequests,
		httpDuration,
		activeSessions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordBillList(err error) {
	billLists.WithLabelValues(resultOf(err)).Inc()
}

func RecordReceiptUpload(result string) {
	receiptUploads.WithLabelValues(result).Inc()
}

func RecordSubmission(err error) {
	submissions.WithLabelValues(resultOf(err)).Inc()
}

// SetLastSubmission stamps the time a bill update settled with err.
func SetLastSubmission(err error, at time.Time) {
	lastSubmission.WithLabelValues(resultOf(err)).Set(float64(at.Unix()))
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses ids so label cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch {
	case parts[0] == "receipts":
		return "/receipts/:key"
	case parts[0] == "static":
		return "/static"
	case len(parts) >= 3 && parts[0] == "api" && parts[1] == "bills":
		return "/api/bills/:id"
	case len(parts) > 3:
		parts = parts[:3]
	}
	return "/" + strings.Join(parts, "/")
}
