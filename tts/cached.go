package tts

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
)

// DefaultSynthesisTTL bounds how long cached audio lives. Audio entries
// are large, so they expire sooner than text results.
const DefaultSynthesisTTL = 6 * time.Hour

// CachedSynthesizer consults the cache before calling the wrapped
// synthesizer and stores successful audio. Errors are never cached.
type CachedSynthesizer struct {
	inner  Synthesizer
	store  cache.Cache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewCachedSynthesizer wraps inner with content-addressed caching.
func NewCachedSynthesizer(inner Synthesizer, store cache.Cache, ttl time.Duration, logger *zap.SugaredLogger) *CachedSynthesizer {
	if ttl <= 0 {
		ttl = DefaultSynthesisTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CachedSynthesizer{inner: inner, store: store, ttl: ttl, logger: logger}
}

// Synthesize returns cached audio when one exists for this text, language
// and voice fingerprint.
func (c *CachedSynthesizer) Synthesize(ctx context.Context, text, targetLang string, voice VoiceOptions) (Audio, error) {
	key := cache.SynthesisKey(cache.HashText(text), targetLang, cache.HashText(voice.Fingerprint()))

	if payload, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Debugw("synthesis cache unavailable", "error", err)
	} else if ok {
		var cached Audio
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warnw("discarding corrupt synthesis cache entry", "key", key)
	}

	result, err := c.inner.Synthesize(ctx, text, targetLang, voice)
	if err != nil {
		return Audio{}, err
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Debugw("synthesis cache store failed", "error", err)
		}
	}
	return result, nil
}

// Health reports the wrapped synthesizer's health.
func (c *CachedSynthesizer) Health() HealthStatus {
	return c.inner.Health()
}
