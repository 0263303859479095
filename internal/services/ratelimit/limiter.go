// Package ratelimit implements a fixed-window per-user request limiter.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/interfaces"
)

// userWindow holds one user's counter. Each entry carries its own mutex so
// concurrent checks for the same user serialize without contending with
// other users' entries.
type userWindow struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// FixedWindowLimiter tracks per-user request counts in a fixed time window.
// Stale entries are reset lazily on next access; entry count is bounded by
// the active-user count, so there is no sweeper.
type FixedWindowLimiter struct {
	maxPerWindow int
	window       time.Duration
	logger       arbor.ILogger

	mu    sync.Mutex // guards the users map only, never held across a window update
	users map[string]*userWindow

	now func() time.Time
}

// NewFixedWindowLimiter creates a limiter allowing maxPerWindow requests
// per user per window. maxPerWindow of zero is a configuration error.
func NewFixedWindowLimiter(maxPerWindow int, window time.Duration, logger arbor.ILogger) (*FixedWindowLimiter, error) {
	if maxPerWindow <= 0 {
		return nil, fmt.Errorf("maxPerWindow must be greater than 0, got %d", maxPerWindow)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be greater than 0, got %s", window)
	}

	return &FixedWindowLimiter{
		maxPerWindow: maxPerWindow,
		window:       window,
		logger:       logger,
		users:        make(map[string]*userWindow),
		now:          time.Now,
	}, nil
}

// Check records one request for userID and reports whether it is allowed.
// The first call in a window always succeeds; once the count exceeds the
// configured maximum the user is denied with the time remaining until
// their window resets.
func (l *FixedWindowLimiter) Check(userID string) interfaces.Decision {
	entry := l.entry(userID)
	now := l.now()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.Sub(entry.windowStart) >= l.window {
		entry.windowStart = now
		entry.count = 0
	}

	entry.count++
	if entry.count > l.maxPerWindow {
		retryAfter := l.window - now.Sub(entry.windowStart)
		l.logger.Debug().
			Str("user_id", userID).
			Int("count", entry.count).
			Dur("retry_after", retryAfter).
			Msg("Rate limit exceeded")
		return interfaces.Decision{Allowed: false, RetryAfter: retryAfter}
	}

	return interfaces.Decision{Allowed: true}
}

// entry returns the window for userID, creating it on first sight.
func (l *FixedWindowLimiter) entry(userID string) *userWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.users[userID]
	if !ok {
		entry = &userWindow{}
		l.users[userID] = entry
	}
	return entry
}
