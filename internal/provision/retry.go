// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"time"
)

// poll invokes check up to attempts times with a fixed pause between tries,
// returning as soon as check reports success. Context cancellation is
// honored between attempts. The final check error (or nil, when the unit is
// simply not live yet) is returned on exhaustion alongside ok=false.
func poll(ctx context.Context, attempts int, pause time.Duration, check func() (bool, error)) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, fmt.Errorf("liveness poll aborted: %w", ctx.Err())
			case <-time.After(pause):
			}
		}

		ok, err := check()
		if ok {
			return true, nil
		}
		lastErr = err
	}
	return false, lastErr
}
