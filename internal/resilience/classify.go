package resilience

// Failure classes recorded with failed batch members. Operators read the
// class to judge whether retrying the failed members is likely to help:
// transient and rate-limited failures usually clear on retry, permanent
// ones do not.
const (
	FailureTransient   = "transient"
	FailurePermanent   = "permanent"
	FailureRateLimited = "rate_limited"
)

// ClassifyError buckets an error into one of the failure classes. Rate
// limits are checked first because every RateLimitError is also
// transient but carries its own retry policy.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case IsRateLimit(err):
		return FailureRateLimited
	case IsTransient(err):
		return FailureTransient
	default:
		return FailurePermanent
	}
}
