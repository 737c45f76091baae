// Package observability provides Prometheus metrics for the sandbox client,
// the submission journal and the MCP server.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIBuckets covers sandbox API latencies from 10ms to 60s. Report and
// sample downloads sit at the upper end.
var APIBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// RequestsTotal counts client operations by endpoint and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuckoo_client_requests_total",
			Help: "Sandbox API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration records client operation latency in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cuckoo_client_request_duration_seconds",
			Help:    "Sandbox API request duration",
			Buckets: APIBuckets,
		},
		[]string{"endpoint"},
	)

	// DownloadBytesTotal counts bytes streamed to disk by download endpoints.
	DownloadBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuckoo_client_download_bytes_total",
			Help: "Bytes written by downloads",
		},
		[]string{"endpoint"},
	)

	// SubmissionsTotal counts file and URL submissions.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuckoo_client_submissions_total",
			Help: "Sample submissions",
		},
		[]string{"kind", "status"},
	)

	// InFlightRequests tracks HTTP requests currently on the wire.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cuckoo_http_requests_in_flight",
			Help: "In-flight HTTP requests",
		},
	)

	// HTTPResponsesTotal counts HTTP responses by method and status class.
	HTTPResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuckoo_http_responses_total",
			Help: "HTTP responses",
		},
		[]string{"method", "status"},
	)

	// JournalRecordsTotal counts journal writes by backend and outcome.
	JournalRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuckoo_journal_records_total",
			Help: "Journal writes",
		},
		[]string{"backend", "status"},
	)

	// ToolCallsTotal counts MCP tool invocations by tool and outcome.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuckoo_mcp_tool_calls_total",
			Help: "MCP tool calls",
		},
		[]string{"tool", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		DownloadBytesTotal,
		SubmissionsTotal,
		InFlightRequests,
		HTTPResponsesTotal,
		JournalRecordsTotal,
		ToolCallsTotal,
	)
}

// ObserveRequest records one client operation. status is the HTTP status
// code, or 0 when no response was received.
func ObserveRequest(endpoint, method string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(endpoint, method, StatusClass(status)).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Outcome returns "ok" for a nil error and "error" otherwise.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// StatusClass maps an HTTP status to "2xx", "4xx", ... and 0 to "error".
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
