// Package cache provides the TTL key/value layer used by every pipeline
// stage. Caching is an optimization, never a correctness dependency: an
// unreachable store degrades to "always miss" at the call sites.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Cache is a key/value store with TTL support.
type Cache interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete invalidates the given keys.
	Delete(ctx context.Context, keys ...string) error
	// Ping probes the backing store.
	Ping(ctx context.Context) error
	// Flush removes every key in the store.
	Flush(ctx context.Context) error
}

const keyPrefix = "cbvoice"

// HashBytes returns the hex sha256 of content, the basis of every
// content-addressed key.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashText hashes normalized text (trimmed) so equivalent inputs share keys.
func HashText(text string) string {
	return HashBytes([]byte(strings.TrimSpace(text)))
}

// TranscriptKey addresses a transcription result.
func TranscriptKey(audioHash, sourceLang string) string {
	return keyPrefix + ":asr:" + audioHash + ":" + sourceLang
}

// TranslationKey addresses a translation result.
func TranslationKey(textHash, sourceLang, targetLang string) string {
	return keyPrefix + ":mt:" + textHash + ":" + sourceLang + ":" + targetLang
}

// SynthesisKey addresses a synthesis result.
func SynthesisKey(textHash, targetLang, voiceHash string) string {
	return keyPrefix + ":tts:" + textHash + ":" + targetLang + ":" + voiceHash
}

// PipelineKey addresses a whole-pipeline result for one submission.
func PipelineKey(audioHash, sourceLang string, targetLangs []string) string {
	sorted := append([]string(nil), targetLangs...)
	sort.Strings(sorted)
	return keyPrefix + ":pipe:" + audioHash + ":" + sourceLang + ":" + strings.Join(sorted, ",")
}

// StatsKey addresses the persisted stats snapshot.
func StatsKey() string {
	return keyPrefix + ":stats"
}
