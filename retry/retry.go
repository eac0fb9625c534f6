// Package retry provides the shared retry policy for upstream calls.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/marketfall/marketfall"
)

const (
	defaultMaxAttempts = 3
	backoffUnit        = 2 * time.Second
)

// Policy describes how an operation is re-attempted.
type Policy struct {
	// MaxAttempts caps the total number of calls, first try included.
	MaxAttempts int

	// Backoff returns the pause before retrying after attempt n
	// (1-based: the pause after the first failure is Backoff(1)).
	Backoff func(attempt int) time.Duration

	// Retryable reports whether an error is worth another attempt.
	Retryable func(err error) bool
}

// Default is the policy of the signed client: three attempts with a
// linearly growing pause.
func Default() Policy {
	return Policy{
		MaxAttempts: defaultMaxAttempts,
		Backoff:     DefaultBackoff,
		Retryable:   StatusRetryable,
	}
}

// Do runs fn until it succeeds, fails non-retryably, exhausts the
// attempt ceiling, or the context ends between attempts. Exhaustion
// wraps the last error in RETRIES_EXHAUSTED.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = StatusRetryable
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt >= attempts {
			return marketfall.WrapError(marketfall.ErrRetriesExhausted, err)
		}

		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DefaultBackoff grows linearly: 2s after the first failure, then 4s, 6s.
func DefaultBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * backoffUnit
}

// StatusRetryable refuses client-side upstream statuses (4xx) and
// retries server-side ones (5xx) plus transport errors.
func StatusRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var me *marketfall.Error
	if errors.As(err, &me) && me.HTTPStatus != 0 {
		return me.HTTPStatus >= 500
	}

	if errors.Is(err, marketfall.ErrNetwork) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Treat unknown transport errors as retryable to be safe.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return false
}
