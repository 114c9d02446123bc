package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/code-payments/code-idl/pkg/retry/backoff"
)

// Strategy determines whether an action should be retried after its attempts
// so far, and how long to wait before doing so.
type Strategy func(attempts uint, err error) (retry bool, delay time.Duration)

// Limit returns a strategy that limits the total number of attempts.
// maxAttempts should be >= 1, since the action is evaluated first.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) (bool, time.Duration) {
		return attempts < maxAttempts, 0
	}
}

// RetriableErrors returns a strategy that specifies which errors can be retried.
func RetriableErrors(retriableErrors ...error) Strategy {
	return If(func(err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	})
}

// If returns a strategy that retries errors matching isRetriable
func If(isRetriable func(error) bool) Strategy {
	return func(_ uint, err error) (bool, time.Duration) {
		return isRetriable(err), 0
	}
}

// Backoff returns a strategy that delays the next attempt, capped at
// maxBackoff.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return BackoffWithJitter(strategy, maxBackoff, 0)
}

// BackoffWithJitter returns a strategy similar to Backoff, but induces a jitter
// on the total delay. The maxBackoff is calculated before the jitter.
//
// The jitter parameter is a percentage of the capped delay that the timing can
// be off by. For example, a capped delay of 100ms with a jitter of 0.1 will
// result in a delay of 100ms +/- 10ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) (bool, time.Duration) {
		delay := time.Duration(math.Min(float64(maxBackoff), float64(strategy(attempts))))
		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + (rand.Float64()*jitter*2 - jitter)))
		}
		return true, delay
	}
}
