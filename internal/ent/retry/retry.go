// Package retry runs fallible operations with bounded exponential backoff.
package retry

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how many times and how often an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries including the first one.
	MaxAttempts int

	// BaseDelay is the wait before the second try.
	BaseDelay time.Duration

	// Multiplier grows the delay after every failed try.
	Multiplier float64

	// Notify, if set, is called before every wait.
	Notify func(op string, attempt int, err error, wait time.Duration)
}

// New creates a Policy. Values below their minimum are raised to
// 1 attempt, zero delay and multiplier 1.
func New(maxAttempts int, baseDelay time.Duration, multiplier float64) Policy {
	res := Policy{
		MaxAttempts: max(maxAttempts, 1),
		BaseDelay:   max(baseDelay, 0),
		Multiplier:  multiplier,
	}
	if res.Multiplier < 1 {
		res.Multiplier = 1
	}
	return res
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error or the policy
// runs out of attempts. The last error is returned unwrapped.
func Do[T any](p Policy, op string, fn func() (T, error)) (T, error) {
	var attempt int
	notify := func(err error, wait time.Duration) {
		attempt++
		slog.Warn("Operation failed, retrying",
			"operation", op,
			"attempt", attempt,
			"max", p.MaxAttempts,
			"wait", wait,
			"error", err,
		)
		if p.Notify != nil {
			p.Notify(op, attempt, err, wait)
		}
	}
	return backoff.RetryNotifyWithData(fn, p.backOff(), notify)
}

// Run is Do for operations without a result.
func Run(p Policy, op string, fn func() error) error {
	_, err := Do(p, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = max(time.Minute, p.BaseDelay)
	b.MaxElapsedTime = 0
	b.Reset()
	attempts := max(p.MaxAttempts, 1)
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}
