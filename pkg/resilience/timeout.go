package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
)

// WithTimeout runs fn under a context that expires after timeout; timeout
// <= 0 runs fn under ctx unchanged. fn must return once its context is done.
// When the local deadline is what stopped fn, the error matches both
// ErrTimeout and context.DeadlineExceeded; a cancelled or expired ctx is
// reported as that ctx's own error.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", name, ctx.Err())
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w (limit %v)", name, apperrors.ErrTimeout, context.DeadlineExceeded, timeout)
	}
	return err
}
