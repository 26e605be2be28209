package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef binds a core counter to its exported name.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef binds a core latency histogram to its exported name.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goAccount.MetricAccountCreated, Name: "goaccount_account_created_total", Help: "Accounts created."},
	{ID: goAccount.MetricAccountValidationFailed, Name: "goaccount_account_validation_failed_total", Help: "Create or update requests rejected by field validation."},
	{ID: goAccount.MetricAccountDuplicateEmail, Name: "goaccount_account_duplicate_email_total", Help: "Create or update requests rejected for a registered email."},
	{ID: goAccount.MetricAccountUpdated, Name: "goaccount_account_updated_total", Help: "Accounts updated."},
	{ID: goAccount.MetricPasswordRehashed, Name: "goaccount_password_rehashed_total", Help: "Updates that changed the password digest."},
	{ID: goAccount.MetricAccountDeleted, Name: "goaccount_account_deleted_total", Help: "Accounts deleted."},
	{ID: goAccount.MetricCascadeDeleteFailure, Name: "goaccount_cascade_delete_failure_total", Help: "Deletions aborted because owned tasks could not be removed."},
	{ID: goAccount.MetricTasksCascaded, Name: "goaccount_tasks_cascaded_total", Help: "Tasks removed together with their owner."},
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful logins."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Failed logins."},
	{ID: goAccount.MetricLoginRateLimited, Name: "goaccount_login_rate_limited_total", Help: "Logins rejected by the throttle."},
	{ID: goAccount.MetricPasswordUpgraded, Name: "goaccount_password_upgraded_total", Help: "Digests re-hashed with stronger parameters at login."},
	{ID: goAccount.MetricTokenIssued, Name: "goaccount_token_issued_total", Help: "Tokens issued."},
	{ID: goAccount.MetricTokenRevoked, Name: "goaccount_token_revoked_total", Help: "Single-token revocations."},
	{ID: goAccount.MetricLogoutAll, Name: "goaccount_logout_all_total", Help: "Revoke-all operations."},
	{ID: goAccount.MetricTokenRejected, Name: "goaccount_token_rejected_total", Help: "Tokens rejected during verification."},
	{ID: goAccount.MetricTaskCreated, Name: "goaccount_task_created_total", Help: "Tasks created."},
	{ID: goAccount.MetricTaskDeleted, Name: "goaccount_task_deleted_total", Help: "Tasks deleted individually."},
	{ID: goAccount.MetricAuditDropped, Name: "goaccount_audit_dropped_total", Help: "Audit events dropped because the queue was full or the engine was closed."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricLoginLatency, Name: "goaccount_login_latency_seconds", Help: "Authenticate latency."},
	{ID: goAccount.MetricValidateLatency, Name: "goaccount_validate_latency_seconds", Help: "Token validation latency."},
}

// UpperBounds are the finite bucket bounds in seconds. The last core bucket
// maps to +Inf.
var UpperBounds = func() []float64 {
	out := make([]float64, len(goAccount.HistogramBounds))
	for i, d := range goAccount.HistogramBounds {
		out[i] = d.Seconds()
	}
	return out
}()

// HistogramBoundSuffix names each bucket in instrument names.
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

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
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
