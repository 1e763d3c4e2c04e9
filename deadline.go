package sinkz

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zoobzio/clockz"
)

// deadline is the shared time budget of a multi-processor operation: either
// unbounded, or a stopwatch started when the operation began.
type deadline struct {
	clock  clockz.Clock
	start  time.Time
	budget time.Duration
}

func newDeadline(clock clockz.Clock, timeout time.Duration) deadline {
	if timeout == NoDeadline {
		return deadline{budget: NoDeadline}
	}
	return deadline{clock: clock, start: clock.Now(), budget: timeout}
}

func (d deadline) unbounded() bool {
	return d.budget == NoDeadline
}

// remaining returns the unspent budget, clamped to zero, and whether the
// budget is exhausted. An unbounded deadline reports NoDeadline and never
// exhausts.
func (d deadline) remaining() (time.Duration, bool) {
	if d.unbounded() {
		return NoDeadline, false
	}
	left := d.budget - d.clock.Since(d.start)
	if left <= 0 {
		return 0, true
	}
	return left, false
}

// validateTimeout rejects negative timeouts other than the NoDeadline
// sentinel.
func validateTimeout(timeout time.Duration) error {
	if timeout < 0 && timeout != NoDeadline {
		return errors.Wrapf(ErrInvalidTimeout, "timeout %s", timeout)
	}
	return nil
}
