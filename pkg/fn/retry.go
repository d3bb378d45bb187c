package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures exponential backoff.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry is the standard policy for transient network failures.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// Retry invokes f until it succeeds or MaxAttempts is reached, doubling the
// wait between attempts. A canceled context aborts the wait immediately.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	wait := opts.InitialWait
	for attempt := 1; ; attempt++ {
		res := f(ctx)
		if res.err == nil || attempt >= opts.MaxAttempts {
			return res
		}

		d := wait
		if opts.Jitter {
			// Spread sleepers over [0.5w, 1.5w) to avoid thundering herds.
			d = time.Duration((0.5 + rand.Float64()) * float64(wait))
		}
		if d > opts.MaxWait {
			d = opts.MaxWait
		}

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Err[T](ctx.Err())
		case <-timer.C:
		}

		if wait *= 2; wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
}
