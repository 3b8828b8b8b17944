// Package metrics exposes Prometheus counters for webhook handling and upstream calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream API labels.
const (
	UpstreamCompletion = "completion"
	UpstreamTelnyx     = "telnyx"
	UpstreamS3         = "s3"
)

var (
	webhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_relay_webhooks_total",
			Help: "Total number of webhook requests by validation outcome",
		},
		[]string{"outcome"},
	)

	upstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_relay_upstream_calls_total",
			Help: "Total number of outbound calls by API and result",
		},
		[]string{"api", "result"},
	)

	upstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sms_relay_upstream_call_duration_seconds",
			Help:    "Outbound call latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"api"},
	)

	fallbackRepliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_relay_fallback_replies_total",
			Help: "Total number of replies that used the fallback text",
		},
	)
)

// RecordWebhook counts a webhook by outcome (authentic, unauthenticated, malformed, ignored).
func RecordWebhook(outcome string) {
	webhooksTotal.WithLabelValues(outcome).Inc()
}

// RecordUpstreamCall counts an outbound call and observes its duration.
func RecordUpstreamCall(api string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	upstreamCallsTotal.WithLabelValues(api, result).Inc()
	upstreamCallDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordFallbackReply counts a reply that used the fallback text.
func RecordFallbackReply() {
	fallbackRepliesTotal.Inc()
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
