package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a context that expires after limit and stops
// waiting for fn once it does, even if fn ignores its context. A
// non-positive limit runs fn directly. The returned error wraps
// context.DeadlineExceeded when the limit is hit, or the parent's error when
// ctx ends first.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(tctx) }()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s exceeded %v: %w", op, limit, context.DeadlineExceeded)
	}
}
