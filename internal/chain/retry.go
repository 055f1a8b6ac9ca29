package chain

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
)

// withRetry retries fn with exponential backoff. ethereum.NotFound is final.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ethereum.NotFound) || attempt >= maxRetries {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

// ErrReceiptTimeout is returned when a mined receipt does not reach the
// requested confirmations within the receipt timeout.
var ErrReceiptTimeout = errors.New("receipt timeout")

// poll calls fn until it reports done, backing off between attempts up to
// maxDelay. Errors, including ethereum.NotFound, are treated as not ready
// until timeout elapses; then the last error is returned, or
// ErrReceiptTimeout when there was none. A zero timeout polls until ctx ends.
func poll(ctx context.Context, baseDelay, maxDelay, timeout time.Duration, fn func(context.Context) (bool, error)) error {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	var lastErr error
	delay := baseDelay
	for {
		done, err := fn(ctx)
		if done {
			return nil
		}
		lastErr = err

		wait := delay
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				if lastErr != nil {
					return errors.Wrapf(lastErr, "gave up after %s", timeout)
				}
				return errors.Wrapf(ErrReceiptTimeout, "gave up after %s", timeout)
			}
			if remaining < wait {
				wait = remaining
			}
		}
		if err := sleep(ctx, wait); err != nil {
			if lastErr != nil && !errors.Is(lastErr, ethereum.NotFound) {
				return errors.WithSecondaryError(err, lastErr)
			}
			return err
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
