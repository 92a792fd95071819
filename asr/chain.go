package asr

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
)

// ErrEmptyTranscript is returned when every provider produced no usable text.
var ErrEmptyTranscript = errors.New("asr: no provider returned usable text")

// Chain tries recognizers in configured primary-to-fallback order. A
// provider that errors or returns an empty transcript is skipped; only
// when all providers fail does the chain surface the last failure.
type Chain struct {
	providers []Recognizer
	logger    *zap.SugaredLogger
}

// NewChain creates a chain over the given providers in priority order.
func NewChain(logger *zap.SugaredLogger, providers ...Recognizer) *Chain {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Chain{providers: providers, logger: logger}
}

// Recognize runs the provider list until one returns usable text.
func (c *Chain) Recognize(ctx context.Context, a audio.NormalizedAudio, languageHint string) (Transcript, error) {
	if len(c.providers) == 0 {
		return Transcript{}, ErrEmptyTranscript
	}

	var lastErr error
	for i, provider := range c.providers {
		transcript, err := provider.Recognize(ctx, a, languageHint)
		if err != nil {
			if ctx.Err() != nil {
				return Transcript{}, err
			}
			c.logger.Warnw("recognizer provider failed", "provider", i, "error", err)
			lastErr = err
			continue
		}
		if strings.TrimSpace(transcript.Text) == "" {
			c.logger.Warnw("recognizer provider returned empty transcript", "provider", i)
			lastErr = ErrEmptyTranscript
			continue
		}
		return transcript, nil
	}
	return Transcript{}, lastErr
}

// Health is healthy when at least one provider reports healthy.
func (c *Chain) Health() HealthStatus {
	for _, provider := range c.providers {
		if status := provider.Health(); status.Healthy {
			return status
		}
	}
	return HealthStatus{Healthy: false, Message: "no healthy recognizer provider"}
}
