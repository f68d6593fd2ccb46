// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled HTTP requests by endpoint and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_gateway_requests_total",
			Help: "Total number of HTTP requests handled by the gateway",
		},
		[]string{"endpoint", "status"},
	)

	// ActiveStreams tracks currently open /chat-stream connections.
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "widget_gateway_active_streams",
			Help: "Number of SSE streams currently open",
		},
	)

	// StreamFramesTotal counts SSE frames written, by frame type
	// (data, keep-alive, error, done).
	StreamFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_gateway_stream_frames_total",
			Help: "Total number of SSE frames written to clients",
		},
		[]string{"type"},
	)

	// UpstreamDuration observes upstream round-trip latency. For streaming
	// requests the observation covers the time to open the stream.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_gateway_upstream_request_duration_seconds",
			Help:    "Latency of requests to the upstream completion provider",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
)
