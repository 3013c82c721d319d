package model

import (
	"context"
	"log"
	"time"
)

// retrier wraps a single logical provider operation with bounded retries
// and linear backoff. Attempt N sleeps retryDelay*N before attempt N+1,
// so delays grow 1x, 2x, 3x. The same engine serves every call path.
type retrier struct {
	maxRetries int
	delay      time.Duration

	// sleep is swapped out in tests to record requested delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func newRetrier(maxRetries int, delay time.Duration) retrier {
	return retrier{maxRetries: maxRetries, delay: delay, sleep: sleepContext}
}

// do runs attempt until it succeeds, a non-retryable error kind appears,
// or maxRetries is exhausted. Every failure is classified first; only
// generic and timeout kinds are retried. Attempts are strictly
// sequential: attempt N+1 never starts before N's backoff has elapsed.
func (r retrier) do(ctx context.Context, op, modelName string, timeout time.Duration, attempt func(context.Context) error) error {
	for n := 1; ; n++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}

		aerr := Classify(err, op, modelName, timeout)
		if !aerr.Retryable() || n > r.maxRetries {
			return aerr
		}

		wait := r.delay * time.Duration(n)
		log.Printf("model: %s attempt %d/%d failed, retrying in %s: %v", op, n, r.maxRetries, wait, aerr)
		if serr := r.sleep(ctx, wait); serr != nil {
			return Classify(serr, op, modelName, timeout)
		}
	}
}

// sleepContext waits for d or until the context is done, whichever comes
// first. The backoff wait must abort on caller cancellation, not just
// the underlying socket operation.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
