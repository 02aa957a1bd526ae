package authclient

import (
	internalmetrics "github.com/MrEthical07/authclient/internal/metrics"
)

// MetricID identifies a specific counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricRequestSuccess   = internalmetrics.MetricRequestSuccess
	MetricRequestFailure   = internalmetrics.MetricRequestFailure
	MetricTransportError   = internalmetrics.MetricTransportError
	MetricTimeout          = internalmetrics.MetricTimeout
	MetricUnauthorized     = internalmetrics.MetricUnauthorized
	MetricRefreshStarted   = internalmetrics.MetricRefreshStarted
	MetricRefreshJoined    = internalmetrics.MetricRefreshJoined
	MetricRefreshSuccess   = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure   = internalmetrics.MetricRefreshFailure
	MetricProactiveRefresh = internalmetrics.MetricProactiveRefresh
	MetricReplay           = internalmetrics.MetricReplay
	MetricReplayRejected   = internalmetrics.MetricReplayRejected
	MetricTeardown         = internalmetrics.MetricTeardown
	MetricLoginSuccess     = internalmetrics.MetricLoginSuccess
	MetricLoginFailure     = internalmetrics.MetricLoginFailure
	MetricLogout           = internalmetrics.MetricLogout
	MetricUpload           = internalmetrics.MetricUpload
	MetricExport           = internalmetrics.MetricExport
	MetricExportRejected   = internalmetrics.MetricExportRejected
	MetricRequestLatency   = internalmetrics.MetricRequestLatency
	MetricRefreshLatency   = internalmetrics.MetricRefreshLatency
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by cfg. When Enabled is false, all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
