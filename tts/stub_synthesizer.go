package tts

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
)

// StubSynthesizerConfig configures the stub synthesizer behavior.
type StubSynthesizerConfig struct {
	// ProcessingDelay simulates synthesis time.
	ProcessingDelay time.Duration
	// SampleRate for generated audio.
	SampleRate int
	// FailLanguages injects a failure for specific target languages,
	// leaving other languages unaffected.
	FailLanguages map[string]error
}

// DefaultStubSynthesizerConfig returns sensible defaults for testing.
func DefaultStubSynthesizerConfig() *StubSynthesizerConfig {
	return &StubSynthesizerConfig{SampleRate: 22050}
}

// StubSynthesizer is a test implementation that returns deterministic
// audio and counts provider calls.
type StubSynthesizer struct {
	config *StubSynthesizerConfig
	calls  atomic.Int64
}

// NewStubSynthesizer creates a new stub synthesizer with the given config.
// If config is nil, defaults are used.
func NewStubSynthesizer(config *StubSynthesizerConfig) *StubSynthesizer {
	if config == nil {
		config = DefaultStubSynthesizerConfig()
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 22050
	}
	return &StubSynthesizer{config: config}
}

// Calls reports how many times Synthesize reached the stub.
func (s *StubSynthesizer) Calls() int64 {
	return s.calls.Load()
}

// Synthesize generates silent WAV audio sized from the text length
// (rough: 150 words per minute).
func (s *StubSynthesizer) Synthesize(ctx context.Context, text, targetLang string, voice VoiceOptions) (Audio, error) {
	s.calls.Add(1)

	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return Audio{}, ctx.Err()
		}
	}

	if err, ok := s.config.FailLanguages[targetLang]; ok {
		return Audio{}, err
	}

	wordCount := len(text) / 5
	if wordCount < 1 {
		wordCount = 1
	}
	duration := time.Duration(wordCount) * 400 * time.Millisecond

	sampleCount := int(duration.Seconds() * float64(s.config.SampleRate))
	samples := make([]int16, sampleCount)

	return Audio{
		Data:       audio.EncodeWAV(samples, s.config.SampleRate, 1),
		Encoding:   "wav",
		SampleRate: s.config.SampleRate,
	}, nil
}

// Health returns the health status of the stub synthesizer.
func (s *StubSynthesizer) Health() HealthStatus {
	return HealthStatus{Healthy: true, Message: "stub synthesizer ready"}
}
