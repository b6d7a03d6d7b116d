package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus collectors are registered once per process
var (
	// RelayRequestsTotal counts relay requests by outcome status code.
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_relay_requests_total",
			Help: "Total relay requests by HTTP status",
		},
		[]string{"status"},
	)

	// RelayStreamDuration tracks wall-clock time of relayed upstream streams.
	RelayStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ember_relay_stream_duration_seconds",
			Help:    "Relayed completion stream duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "outcome"},
	)

	// RelayTokensTotal counts completion tokens relayed, as measured by the relay.
	RelayTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_relay_completion_tokens_total",
			Help: "Completion tokens relayed (whitespace word count)",
		},
		[]string{"model"},
	)

	// RelayStreamsActive tracks in-flight relay streams.
	RelayStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ember_relay_streams_active",
			Help: "Number of in-flight relay streams",
		},
	)

	// HistoryTruncationsTotal counts requests whose history was trimmed to fit the budget.
	HistoryTruncationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_history_truncations_total",
			Help: "Requests whose message history was trimmed",
		},
	)
)

// Stream outcomes recorded on RelayStreamDuration.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// RecordRelayRequest records the final status of a relay request.
func RecordRelayRequest(status string) {
	RelayRequestsTotal.WithLabelValues(status).Inc()
}

// RecordRelayStream records metrics for one relayed stream.
func RecordRelayStream(model, outcome string, seconds float64, tokens int) {
	RelayStreamDuration.WithLabelValues(model, outcome).Observe(seconds)
	RelayTokensTotal.WithLabelValues(model).Add(float64(tokens))
}
