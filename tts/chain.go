package tts

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNoProviders is returned by an empty chain.
var ErrNoProviders = errors.New("tts: no providers configured")

// Chain tries synthesizers in configured primary-to-fallback order and
// surfaces the last failure only after every provider has failed.
type Chain struct {
	providers []Synthesizer
	logger    *zap.SugaredLogger
}

// NewChain creates a chain over the given providers in priority order.
func NewChain(logger *zap.SugaredLogger, providers ...Synthesizer) *Chain {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Chain{providers: providers, logger: logger}
}

// Synthesize runs the provider list until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, text, targetLang string, voice VoiceOptions) (Audio, error) {
	if len(c.providers) == 0 {
		return Audio{}, ErrNoProviders
	}

	var lastErr error
	for i, provider := range c.providers {
		result, err := provider.Synthesize(ctx, text, targetLang, voice)
		if err != nil {
			if ctx.Err() != nil {
				return Audio{}, err
			}
			c.logger.Warnw("synthesizer provider failed", "provider", i, "targetLang", targetLang, "error", err)
			lastErr = err
			continue
		}
		return result, nil
	}
	return Audio{}, lastErr
}

// Health is healthy when at least one provider reports healthy.
func (c *Chain) Health() HealthStatus {
	for _, provider := range c.providers {
		if status := provider.Health(); status.Healthy {
			return status
		}
	}
	return HealthStatus{Healthy: false, Message: "no healthy synthesizer provider"}
}
