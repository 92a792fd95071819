package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds per-stage retries of provider failures. Retries are
// scoped to the single failing stage so already-succeeded stages are
// never re-paid.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first failure.
	MaxRetries int
	// InitialBackoff is the delay before the first retry; it doubles on
	// each subsequent attempt.
	InitialBackoff time.Duration
	// CallTimeout bounds a single provider call.
	CallTimeout time.Duration
}

// DefaultRetryPolicy matches the configured defaults: two retries,
// exponential backoff from 200ms, 15s per call.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		CallTimeout:    15 * time.Second,
	}
}

// withDefaults fills unset fields. MaxRetries: zero means the default;
// a negative value disables retries.
func (p RetryPolicy) withDefaults() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.MaxRetries == 0 {
		p.MaxRetries = defaults.MaxRetries
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaults.InitialBackoff
	}
	if p.CallTimeout <= 0 {
		p.CallTimeout = defaults.CallTimeout
	}
	return p
}

// retryStage runs fn with per-call timeouts until it succeeds or the
// attempt budget is spent, returning the last failure.
func retryStage(ctx context.Context, policy RetryPolicy, logger *zap.SugaredLogger, stage string, fn func(ctx context.Context) error) error {
	backoff := policy.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, policy.CallTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < policy.MaxRetries {
			logger.Warnw("stage failed, retrying",
				"stage", stage,
				"attempt", attempt+1,
				"maxRetries", policy.MaxRetries,
				"error", err,
			)
		}
	}
	return lastErr
}
