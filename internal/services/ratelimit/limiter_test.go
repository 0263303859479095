package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdoc/askdoc/internal/common"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) *FixedWindowLimiter {
	t.Helper()
	limiter, err := NewFixedWindowLimiter(max, window, common.GetLogger())
	require.NoError(t, err)
	return limiter
}

func TestNewFixedWindowLimiter_InvalidConfig(t *testing.T) {
	_, err := NewFixedWindowLimiter(0, time.Minute, common.GetLogger())
	assert.Error(t, err)

	_, err = NewFixedWindowLimiter(10, 0, common.GetLogger())
	assert.Error(t, err)
}

func TestCheck_AllowsUpToMaxThenDenies(t *testing.T) {
	limiter := newTestLimiter(t, 10, time.Minute)

	for i := 0; i < 10; i++ {
		decision := limiter.Check("user-1")
		assert.True(t, decision.Allowed, "call %d should be allowed", i+1)
	}

	decision := limiter.Check("user-1")
	assert.False(t, decision.Allowed, "11th call should be denied")
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, decision.RetryAfter, time.Minute)
}

func TestCheck_WindowResetAllowsAgain(t *testing.T) {
	limiter := newTestLimiter(t, 2, time.Minute)

	current := time.Unix(1000, 0)
	limiter.now = func() time.Time { return current }

	assert.True(t, limiter.Check("user-1").Allowed)
	assert.True(t, limiter.Check("user-1").Allowed)
	assert.False(t, limiter.Check("user-1").Allowed)

	// Advance past the window: counter resets regardless of prior count
	current = current.Add(time.Minute)
	assert.True(t, limiter.Check("user-1").Allowed)
}

func TestCheck_UsersDoNotShareWindows(t *testing.T) {
	limiter := newTestLimiter(t, 1, time.Minute)

	assert.True(t, limiter.Check("user-1").Allowed)
	assert.False(t, limiter.Check("user-1").Allowed)

	// A different user still has a fresh window
	assert.True(t, limiter.Check("user-2").Allowed)
}

func TestCheck_RetryAfterShrinksAsWindowAges(t *testing.T) {
	limiter := newTestLimiter(t, 1, time.Minute)

	current := time.Unix(2000, 0)
	limiter.now = func() time.Time { return current }

	require.True(t, limiter.Check("user-1").Allowed)

	current = current.Add(45 * time.Second)
	decision := limiter.Check("user-1")
	require.False(t, decision.Allowed)
	assert.Equal(t, 15*time.Second, decision.RetryAfter)
}

func TestCheck_ConcurrentSameUserNeverExceedsLimit(t *testing.T) {
	const max = 50
	limiter := newTestLimiter(t, max, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check("user-1").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, max, allowed, "concurrent checks must not allow more than the window maximum")
}
