// Package periodic runs a function on a fixed cadence until its context is
// cancelled. It backs the security core's 30s threat-analysis evaluator
// and the monitoring core's alert-rule evaluator (spec §4.5, §4.6).
package periodic

import (
	"context"
	"time"
)

// Run invokes fn every interval until ctx is done. The first invocation
// happens after the first tick, not immediately, matching a scheduled
// cadence rather than a startup burst.
func Run(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			fn(t)
		}
	}
}
