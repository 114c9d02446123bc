// Package retry runs actions until they succeed or a strategy gives up.
package retry

import (
	"context"
	"time"
)

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry executes the provided action, potentially multiple times based off of
// the provided strategies. Retry blocks until the action is successful, one of
// the strategies indicates no further retries should be performed, or ctx is
// done.
//
// Between attempts Retry waits for the longest delay requested by any
// strategy.
func Retry(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	for i := uint(1); ; i++ {
		err := action()
		if err == nil {
			return i, nil
		}

		var wait time.Duration
		for _, s := range strategies {
			shouldRetry, delay := s(i, err)
			if !shouldRetry {
				return i, err
			}
			if delay > wait {
				wait = delay
			}
		}

		if wait <= 0 {
			if ctx.Err() != nil {
				return i, err
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return i, err
		case <-timer.C:
		}
	}
}
