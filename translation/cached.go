package translation

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
)

// DefaultTranslationTTL bounds how long cached translations live.
const DefaultTranslationTTL = 7 * 24 * time.Hour

// CachedTranslator consults the cache before calling the wrapped
// translator and stores successful results. It also owns the
// same-language short circuit: translating into the source language
// returns the input verbatim without a provider call or cache write.
type CachedTranslator struct {
	inner  Translator
	store  cache.Cache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewCachedTranslator wraps inner with content-addressed caching.
func NewCachedTranslator(inner Translator, store cache.Cache, ttl time.Duration, logger *zap.SugaredLogger) *CachedTranslator {
	if ttl <= 0 {
		ttl = DefaultTranslationTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CachedTranslator{inner: inner, store: store, ttl: ttl, logger: logger}
}

// Translate returns a cached translation when one exists for this text
// and language pair.
func (c *CachedTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (Translation, error) {
	if sourceLang == targetLang {
		return Translation{
			SourceText:     text,
			TranslatedText: text,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			Confidence:     1,
		}, nil
	}

	key := cache.TranslationKey(cache.HashText(text), sourceLang, targetLang)

	if payload, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Debugw("translation cache unavailable", "error", err)
	} else if ok {
		var cached Translation
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warnw("discarding corrupt translation cache entry", "key", key)
	}

	result, err := c.inner.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return Translation{}, err
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Debugw("translation cache store failed", "error", err)
		}
	}
	return result, nil
}

// Health reports the wrapped translator's health.
func (c *CachedTranslator) Health() HealthStatus {
	return c.inner.Health()
}
