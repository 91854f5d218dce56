// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames taken from a source.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_frames_total",
			Help: "Total number of frames read from the source",
		},
		[]string{"source"},
	)

	// ActionsTotal counts verdicts by action.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_actions_total",
			Help: "Total number of verdicts returned, by action",
		},
		[]string{"action"},
	)

	// ProtocolsTotal counts decoded headers by layer and protocol.
	ProtocolsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_protocols_total",
			Help: "Total number of headers decoded, by layer and protocol",
		},
		[]string{"layer", "protocol"},
	)

	// ParseErrorsTotal counts frames the walker could not fully parse.
	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_parse_errors_total",
			Help: "Total number of frames rejected by the parser",
		},
		[]string{"reason"},
	)

	// HandleSeconds measures per-frame handler latency.
	HandleSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "strix_handle_seconds",
			Help:    "Latency of per-frame handling in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 16), // 1µs to ~32ms
		},
	)
)
