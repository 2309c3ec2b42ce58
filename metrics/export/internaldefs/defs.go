package internaldefs

import (
	glazeAuth "github.com/MrEthical07/glazeAuth"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   glazeAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   glazeAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: glazeAuth.MetricLoginSuccess, Name: "glazeauth_login_success_total", Help: "Successful logins."},
	{ID: glazeAuth.MetricLoginFailure, Name: "glazeauth_login_failure_total", Help: "Failed logins, excluding local validation failures."},
	{ID: glazeAuth.MetricBindOfferScheduled, Name: "glazeauth_bind_offer_scheduled_total", Help: "Deferred credential bind offers."},
	{ID: glazeAuth.MetricLogout, Name: "glazeauth_logout_total", Help: "Local logouts."},
	{ID: glazeAuth.MetricLogoutRemoteFailure, Name: "glazeauth_logout_remote_failure_total", Help: "Logouts whose server call failed."},
	{ID: glazeAuth.MetricSessionRestored, Name: "glazeauth_session_restored_total", Help: "Cold starts that restored a cached session."},
	{ID: glazeAuth.MetricSessionExpired, Name: "glazeauth_session_expired_total", Help: "Sessions expired by the server."},
	{ID: glazeAuth.MetricRequestSuccess, Name: "glazeauth_request_success_total", Help: "Calls answered with the success code."},
	{ID: glazeAuth.MetricRequestTransportError, Name: "glazeauth_request_transport_error_total", Help: "Calls that failed in transport or with a non-2xx status."},
	{ID: glazeAuth.MetricRequestTimeout, Name: "glazeauth_request_timeout_total", Help: "Calls that exceeded their timeout."},
	{ID: glazeAuth.MetricRequestBusinessError, Name: "glazeauth_request_business_error_total", Help: "Calls answered with a business error code."},
	{ID: glazeAuth.MetricRefreshSuccess, Name: "glazeauth_refresh_success_total", Help: "Successful token refreshes."},
	{ID: glazeAuth.MetricRefreshFailure, Name: "glazeauth_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: glazeAuth.MetricBindSuccess, Name: "glazeauth_bind_success_total", Help: "Successful bind and unbind calls."},
	{ID: glazeAuth.MetricBindFailure, Name: "glazeauth_bind_failure_total", Help: "Failed bind and unbind calls."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: glazeAuth.MetricRequestLatency, Name: "glazeauth_request_latency_seconds", Help: "Request pipeline latency."},
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const (
	AuditDroppedName = "glazeauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
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
