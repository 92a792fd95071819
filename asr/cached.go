package asr

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
)

// DefaultTranscriptTTL bounds how long cached transcripts live.
const DefaultTranscriptTTL = 24 * time.Hour

// CachedRecognizer consults the cache before calling the wrapped
// recognizer and stores successful transcripts. Cache trouble is logged
// and treated as a miss; errors are never cached.
type CachedRecognizer struct {
	inner  Recognizer
	store  cache.Cache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewCachedRecognizer wraps inner with content-addressed caching.
func NewCachedRecognizer(inner Recognizer, store cache.Cache, ttl time.Duration, logger *zap.SugaredLogger) *CachedRecognizer {
	if ttl <= 0 {
		ttl = DefaultTranscriptTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CachedRecognizer{inner: inner, store: store, ttl: ttl, logger: logger}
}

// Recognize returns a cached transcript when one exists for this audio
// and language hint.
func (c *CachedRecognizer) Recognize(ctx context.Context, a audio.NormalizedAudio, languageHint string) (Transcript, error) {
	key := cache.TranscriptKey(cache.HashBytes(a.PCMData), languageHint)

	if payload, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Debugw("transcript cache unavailable", "error", err)
	} else if ok {
		var cached Transcript
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warnw("discarding corrupt transcript cache entry", "key", key)
	}

	transcript, err := c.inner.Recognize(ctx, a, languageHint)
	if err != nil {
		return Transcript{}, err
	}

	if payload, err := json.Marshal(transcript); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Debugw("transcript cache store failed", "error", err)
		}
	}
	return transcript, nil
}

// Health reports the wrapped recognizer's health.
func (c *CachedRecognizer) Health() HealthStatus {
	return c.inner.Health()
}
