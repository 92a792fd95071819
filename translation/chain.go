package translation

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNoProviders is returned by an empty chain.
var ErrNoProviders = errors.New("translation: no providers configured")

// Chain tries translators in configured primary-to-fallback order and
// surfaces the last failure only after every provider has failed.
type Chain struct {
	providers []Translator
	logger    *zap.SugaredLogger
}

// NewChain creates a chain over the given providers in priority order.
func NewChain(logger *zap.SugaredLogger, providers ...Translator) *Chain {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Chain{providers: providers, logger: logger}
}

// Translate runs the provider list until one succeeds.
func (c *Chain) Translate(ctx context.Context, text, sourceLang, targetLang string) (Translation, error) {
	if len(c.providers) == 0 {
		return Translation{}, ErrNoProviders
	}

	var lastErr error
	for i, provider := range c.providers {
		result, err := provider.Translate(ctx, text, sourceLang, targetLang)
		if err != nil {
			if ctx.Err() != nil {
				return Translation{}, err
			}
			c.logger.Warnw("translator provider failed", "provider", i, "error", err)
			lastErr = err
			continue
		}
		return result, nil
	}
	return Translation{}, lastErr
}

// Health is healthy when at least one provider reports healthy.
func (c *Chain) Health() HealthStatus {
	for _, provider := range c.providers {
		if status := provider.Health(); status.Healthy {
			return status
		}
	}
	return HealthStatus{Healthy: false, Message: "no healthy translator provider"}
}
