package internaldefs

import (
	"github.com/MrEthical07/careauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   careauth.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for export.
type HistogramDef struct {
	ID   careauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of security events lost to backpressure.
const AuditDroppedName = "careauth_security_events_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: careauth.MetricRegisterSuccess, Name: "careauth_register_success_total", Help: "Accounts created by registration."},
	{ID: careauth.MetricRegisterDuplicate, Name: "careauth_register_duplicate_total", Help: "Registrations rejected because the email exists."},
	{ID: careauth.MetricRegisterInvalid, Name: "careauth_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: careauth.MetricRegisterPolicyRejected, Name: "careauth_register_password_policy_total", Help: "Registrations rejected by the password strength policy."},
	{ID: careauth.MetricLoginSuccess, Name: "careauth_login_success_total", Help: "Successful password logins."},
	{ID: careauth.MetricLoginFailure, Name: "careauth_login_failure_total", Help: "Failed password logins."},
	{ID: careauth.MetricLoginLocked, Name: "careauth_login_locked_total", Help: "Logins refused because the account was locked."},
	{ID: careauth.MetricLockoutTriggered, Name: "careauth_lockout_triggered_total", Help: "Accounts locked after repeated failures."},
	{ID: careauth.MetricPasswordMigrated, Name: "careauth_password_migrated_total", Help: "Legacy password digests migrated to PBKDF2."},
	{ID: careauth.MetricDemoAdminLogin, Name: "careauth_demo_admin_login_total", Help: "Logins with the demo admin credentials."},
	{ID: careauth.MetricProfileRead, Name: "careauth_profile_read_total", Help: "Profile reads."},
	{ID: careauth.MetricProfileUpdate, Name: "careauth_profile_update_total", Help: "Profile updates."},
	{ID: careauth.MetricOAuthSuccess, Name: "careauth_oauth_success_total", Help: "Successful OAuth sign-ins."},
	{ID: careauth.MetricOAuthFailure, Name: "careauth_oauth_failure_total", Help: "Failed OAuth sign-ins."},
	{ID: careauth.MetricOAuthAccountCreated, Name: "careauth_oauth_account_created_total", Help: "Accounts created on first OAuth sign-in."},
	{ID: careauth.MetricLogout, Name: "careauth_logout_total", Help: "Logout calls."},
	{ID: careauth.MetricTokenRejected, Name: "careauth_token_rejected_total", Help: "Bearer tokens that failed verification."},
	{ID: careauth.MetricRateLimited, Name: "careauth_rate_limited_total", Help: "Requests rejected by per-IP rate limits."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: careauth.MetricLoginLatency, Name: "careauth_login_latency_seconds", Help: "Password login latency."},
	{ID: careauth.MetricOAuthLatency, Name: "careauth_oauth_latency_seconds", Help: "OAuth sign-in latency including provider calls."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the engine's buckets.
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

// HistogramBoundSuffix renders HistogramBounds as instrument name suffixes.
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

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
