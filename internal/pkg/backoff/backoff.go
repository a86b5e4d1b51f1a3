// Package backoff provides retry delays for connecting to external stores.
package backoff

import (
	"context"
	"time"
)

// MaxDelay caps the delay between attempts.
const MaxDelay = 16 * time.Second

// Delay returns the exponential delay after the given attempt (1-based):
// 1s, 2s, 4s, ... capped at MaxDelay.
func Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		return MaxDelay
	}
	return min(time.Duration(1<<(attempt-1))*time.Second, MaxDelay)
}

// Sleep waits for d or until ctx is done. Returns false if ctx was cancelled.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
