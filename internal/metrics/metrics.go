// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for conversions on both
// the client workflow and the reference server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

var (
	attemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "markitdown_web_attempts_total",
		Help: "Conversion attempts started by the client workflow",
	})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "markitdown_web_outcomes_total",
		Help: "Applied conversion outcomes by kind",
	}, []string{"kind"}) // kind=success|unsupported_type|too_large|server_error|...

	staleTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "markitdown_web_stale_outcomes_total",
		Help: "Outcomes discarded because a newer file was dropped",
	})

	uploadSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "markitdown_web_upload_seconds",
		Help:    "Duration of upload round trips",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	serverRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "markitdown_web_server_conversions_total",
		Help: "Conversions handled by the server by HTTP status",
	}, []string{"status"})

	serverConvertSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "markitdown_web_server_convert_seconds",
		Help:    "Time spent in the converter backend",
		Buckets: prometheus.DefBuckets,
	})
)

const kindSuccess = "success"

// RecordAttempt counts a started attempt.
func RecordAttempt() {
	attemptsTotal.Inc()
}

// RecordOutcome counts an applied outcome. A nil failure is a success.
func RecordOutcome(f *types.Failure) {
	kind := kindSuccess
	if f != nil {
		kind = string(f.Kind)
	}
	outcomesTotal.WithLabelValues(kind).Inc()
}

// RecordStale counts a discarded outcome.
func RecordStale() {
	staleTotal.Inc()
}

// ObserveUpload records an upload round trip.
func ObserveUpload(d time.Duration) {
	uploadSeconds.Observe(d.Seconds())
}

// RecordServerConversion counts a handled server request by status code text.
func RecordServerConversion(status string) {
	serverRequestsTotal.WithLabelValues(status).Inc()
}

// ObserveServerConvert records backend conversion time.
func ObserveServerConvert(d time.Duration) {
	serverConvertSeconds.Observe(d.Seconds())
}
