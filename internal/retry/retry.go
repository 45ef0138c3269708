// ABOUTME: Exponential backoff with jitter for the platform client's retry policy.
// ABOUTME: Delay for attempt n is base*factor^n plus a uniform(0.1,0.3)*base*factor^n jitter term.

package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy configures the retry/backoff behavior of a retryable call.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Factor      float64
}

// DefaultPolicy matches the specification's defaults: base=1s, factor=2, max_attempts=3.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Base: time.Second, Factor: 2}
}

// Delay returns the backoff delay before attempt n (0-indexed), including jitter.
func (p Policy) Delay(n int, rng *rand.Rand) time.Duration {
	base := float64(p.Base) * math.Pow(p.Factor, float64(n))
	jitter := (0.1 + 0.2*rng.Float64()) * base
	return time.Duration(base + jitter)
}

// Classifier decides whether an error returned by the operation should be retried.
type Classifier func(error) bool

// Do runs fn, retrying per policy while classify(err) is true and attempts remain.
// It sleeps for the backoff delay between attempts, respecting ctx cancellation.
func Do(ctx context.Context, p Policy, classify Classifier, fn func(attempt int) error) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}
		if !classify(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		delay := p.Delay(attempt, rng)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
