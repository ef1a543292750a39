package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy bounds the attempts made against an upstream model.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type singleAttemptKey struct{}

// WithoutRetry marks ctx so that RetryPolicy.Do makes exactly one attempt.
func WithoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleAttemptKey{}, true)
}

// RetriesDisabled reports whether ctx was marked by WithoutRetry.
func RetriesDisabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(singleAttemptKey{}).(bool)
	return disabled
}

// NewRetryPolicy returns a policy, substituting defaults for invalid values.
func NewRetryPolicy(maxRetries int, baseDelay time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: baseDelay}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn until it succeeds, returns a permanent error, or the policy is
// exhausted. A ctx marked by WithoutRetry gets a single attempt. Delays grow
// exponentially with jitter:
// delay = base * 2^attempt * (0.5 + rand(0, 0.5)).
func (p RetryPolicy) Do(
	ctx context.Context,
	log *slog.Logger,
	fn func(ctx context.Context) (*GeneratedFields, error),
) (*GeneratedFields, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	maxRetries := p.MaxRetries
	if RetriesDisabled(ctx) {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		fields, err := fn(ctx)
		if err == nil {
			return fields, nil
		}
		lastErr = err

		if IsPermanent(err) || errors.Is(err, context.Canceled) {
			log.WarnContext(ctx, "permanent generation error, not retrying",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			return nil, err
		}

		if attempt == maxRetries {
			break
		}

		backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))
		log.InfoContext(ctx, "retrying generation after delay",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if err := sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransientFailure, err)
		}
	}

	return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
		ErrTransientFailure, maxRetries, lastErr)
}
