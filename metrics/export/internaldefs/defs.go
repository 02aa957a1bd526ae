package internaldefs

import (
	"github.com/MrEthical07/authclient"
)

// Source is implemented by *authclient.Client and by anything that can produce a
// snapshot in the same shape.
type Source interface {
	MetricsSnapshot() authclient.MetricsSnapshot
	AuditDropped() uint64
}

// PendingSource is optionally implemented by a Source that can report whether a refresh
// exchange is in flight.
type PendingSource interface {
	RefreshPending() bool
}

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// Series fed by Source methods other than MetricsSnapshot.
const (
	AuditDroppedName    = "authclient_audit_dropped_total"
	AuditDroppedHelp    = "Audit events dropped because the dispatcher buffer was full."
	RefreshInFlightName = "authclient_refresh_in_flight"
	RefreshInFlightHelp = "1 while a refresh exchange is pending."
)

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: authclient.MetricRequestSuccess, Name: "authclient_request_success_total", Help: "Requests that produced a successful response."},
	{ID: authclient.MetricRequestFailure, Name: "authclient_request_failure_total", Help: "Requests that produced a failed response."},
	{ID: authclient.MetricTransportError, Name: "authclient_transport_error_total", Help: "Requests that never received a reply."},
	{ID: authclient.MetricTimeout, Name: "authclient_timeout_total", Help: "Requests abandoned at their deadline."},
	{ID: authclient.MetricUnauthorized, Name: "authclient_unauthorized_total", Help: "401 replies on a first attempt."},
	{ID: authclient.MetricRefreshStarted, Name: "authclient_refresh_started_total", Help: "Refresh exchanges started."},
	{ID: authclient.MetricRefreshJoined, Name: "authclient_refresh_joined_total", Help: "Callers that waited on an exchange already in flight."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Refresh exchanges that rotated the token pair."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Refresh exchanges that failed."},
	{ID: authclient.MetricProactiveRefresh, Name: "authclient_proactive_refresh_total", Help: "Refreshes triggered by an expiring access token before dispatch."},
	{ID: authclient.MetricReplay, Name: "authclient_replay_total", Help: "Requests replayed after a refresh."},
	{ID: authclient.MetricReplayRejected, Name: "authclient_replay_rejected_total", Help: "Replays the backend rejected with 401."},
	{ID: authclient.MetricTeardown, Name: "authclient_session_teardown_total", Help: "Session teardowns that notified and redirected."},
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Successful logins."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Failed logins."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Logouts."},
	{ID: authclient.MetricUpload, Name: "authclient_upload_total", Help: "Successful multipart uploads."},
	{ID: authclient.MetricExport, Name: "authclient_export_total", Help: "Exported files saved."},
	{ID: authclient.MetricExportRejected, Name: "authclient_export_rejected_total", Help: "Exports answered with a JSON error instead of a file."},
}

// HistogramDefs lists every latency histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "Request latency including refresh and replay."},
	{ID: authclient.MetricRefreshLatency, Name: "authclient_refresh_latency_seconds", Help: "Refresh exchange latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the snapshot buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array; missing buckets read as zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
