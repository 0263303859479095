package interfaces

import "time"

// Decision is the outcome of a rate-limit check. RetryAfter is only
// meaningful when Allowed is false: it reports how long until the caller's
// window resets.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter tracks per-user request counts in a fixed time window.
// Implementations must serialize concurrent checks for the same user
// without serializing checks across different users. Exceeding the window
// is an informational denial, never an error.
type RateLimiter interface {
	Check(userID string) Decision
}
