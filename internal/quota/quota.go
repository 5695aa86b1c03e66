// Package quota implements the scan endpoint's rate/usage guard:
// per-tenant usage counters over fixed time windows. A successful scan
// consumes exactly one usage unit regardless of how many upstream
// extractor calls it made; the guard never sees escalation.
package quota

import "time"

// Policy describes one rate-limited action: at most Limit usage units
// per tenant per Window.
type Policy struct {
	Action string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed    bool
	LimitHit   string
	RetryAfter time.Duration
}

// Guard gates rate-limited actions. Implementations must be safe under
// concurrent checks and increments from the same tenant.
type Guard interface {
	// Check reports whether the tenant may perform another unit of the
	// policy's action right now. It does not consume quota.
	Check(tenantID string, policy Policy) (Decision, error)

	// RecordUsage consumes one usage unit. Called exactly once per
	// successful end-to-end action.
	RecordUsage(tenantID, action string) error

	// Close releases the guard's resources.
	Close() error
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// windowStart truncates now to the start of the policy window.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}
