package openaichat

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior with exponential backoff.
type RetryPolicy struct {
	MaxAttempts       int     // total attempts, including the first
	BaseDelay         float64 // initial delay in seconds
	MaxDelay          float64 // maximum delay between attempts
	BackoffMultiplier float64 // exponential backoff factor
	JitterFraction    float64 // uniform jitter as a fraction of the delay, 0 disables
	OnRetry           func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         1.0,
		MaxDelay:          60.0,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.5,
	}
}

// Delay calculates the backoff delay after attempt n (1-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := math.Min(p.BaseDelay*math.Pow(p.BackoffMultiplier, float64(attempt-1)), p.MaxDelay)
	if p.JitterFraction > 0 {
		// Uniform in [1-f, 1+f).
		delay = delay * (1 - p.JitterFraction + 2*p.JitterFraction*rand.Float64())
	}
	return time.Duration(delay * float64(time.Second))
}

// Retry executes fn under the policy. Transient failures (per IsRetryable)
// are retried after a backoff sleep; permanent failures return immediately.
// The sleep is the only suspension point and honors ctx cancellation. When
// every attempt fails, the last error is returned wrapped in a
// RetryExhaustedError carrying the attempt count.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		var result T
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt >= maxAttempts {
			return zero, &RetryExhaustedError{
				SDKError: SDKError{Message: fmt.Sprintf("request failed after %d attempts", attempt), Cause: err},
				Attempts: attempt,
			}
		}

		delay := policy.Delay(attempt)
		// Honor Retry-After on rate limit errors.
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter != nil {
			retryDelay := time.Duration(*rl.RetryAfter * float64(time.Second))
			if retryDelay > time.Duration(policy.MaxDelay*float64(time.Second)) {
				// Retry-After exceeds max delay; surface immediately.
				return zero, err
			}
			delay = retryDelay
		}

		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt, delay)
		}

		select {
		case <-ctx.Done():
			return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry backoff", Cause: ctx.Err()}}
		case <-time.After(delay):
		}
	}
}
