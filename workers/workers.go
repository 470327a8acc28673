package workers

import (
	"context"
	"time"
)

// sleep waits for d or until ctx is done. It reports whether the worker
// should keep going.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
