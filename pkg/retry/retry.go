// Package retry runs a step at a fixed interval until a predicate accepts its
// result or the attempt budget runs out.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrAttemptsExhausted is returned when every attempt completed without the done predicate holding
var ErrAttemptsExhausted = errors.New("attempts exhausted")

var errNotDone = errors.New("not done")

// Policy bounds a polling loop
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Poll calls step until done reports true, step fails, ctx ends or the policy is exhausted.
// On exhaustion it returns the last observed value together with ErrAttemptsExhausted.
func Poll[T any](ctx context.Context, p Policy, step func(ctx context.Context) (T, error), done func(T) bool) (T, error) {
	var last T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := goretry.WithMaxRetries(uint64(attempts-1), goretry.NewConstant(p.Interval))

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := step(ctx)
		if err != nil {
			return err
		}
		last = v
		if done(v) {
			return nil
		}
		return goretry.RetryableError(errNotDone)
	})

	if errors.Is(err, errNotDone) {
		return last, ErrAttemptsExhausted
	}
	return last, err
}
