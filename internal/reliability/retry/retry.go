package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Policy holds retry strategy configuration
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Multiplier  float64
}

// DefaultPolicy returns sensible retry defaults for short request-scoped calls
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
		Multiplier:  2.0,
	}
}

// Func is an operation that can be retried
type Func[T any] func(ctx context.Context) (T, error)

// Do executes fn with exponential backoff, honoring context cancellation
// between and during backoff waits.
func Do[T any](ctx context.Context, p *Policy, log *slog.Logger, op string, fn Func[T]) (T, error) {
	var zero T
	var lastErr error

	backoff := p.BaseBackoff
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		log.Warn("operation failed, retrying",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * p.Multiplier)
		if backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}

	return zero, fmt.Errorf("operation %q failed after %d attempts: %w", op, p.MaxAttempts, lastErr)
}
