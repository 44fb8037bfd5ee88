package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	emailsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_emails_sent_total",
			Help: "Total number of campaign emails sent",
		},
	)

	sendsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_sends_skipped_total",
			Help: "Total number of send-next calls skipped by pacing",
		},
		[]string{"reason"},
	)

	sendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_send_failures_total",
			Help: "Total number of failed send attempts",
		},
	)

	recipientsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_recipients_suppressed_total",
			Help: "Total number of recipients suppressed",
		},
	)
)

// RecordEmailSent increments the sent counter.
func RecordEmailSent() { emailsSent.Inc() }

// RecordSendSkipped counts a pacing skip by reason.
func RecordSendSkipped(reason string) { sendsSkipped.WithLabelValues(reason).Inc() }

// RecordSendFailure counts a failed send attempt.
func RecordSendFailure() { sendFailures.Inc() }

// RecordSuppression counts a recipient suppression.
func RecordSuppression() { recipientsSuppressed.Inc() }

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics records request counts and latency per method/path.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}
