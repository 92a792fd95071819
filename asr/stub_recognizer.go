package asr

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
)

// StubRecognizerConfig configures the stub recognizer behavior.
type StubRecognizerConfig struct {
	// ProcessingDelay simulates recognition time.
	ProcessingDelay time.Duration
	// Result is returned on success. A zero value falls back to the
	// default transcript.
	Result Transcript
	// FailTimes causes the first N calls to fail with FailErr.
	FailTimes int
	// FailErr is the injected failure. Nil means a generic error.
	FailErr error
}

// DefaultStubRecognizerConfig returns sensible defaults for testing.
func DefaultStubRecognizerConfig() *StubRecognizerConfig {
	return &StubRecognizerConfig{
		Result: Transcript{
			Text:       "Hello world.",
			Confidence: 0.95,
			Language:   "en",
		},
	}
}

// StubRecognizer is a test implementation that returns deterministic
// transcripts and counts provider calls.
type StubRecognizer struct {
	config *StubRecognizerConfig
	calls  atomic.Int64
}

// NewStubRecognizer creates a new stub recognizer with the given config.
// If config is nil, defaults are used.
func NewStubRecognizer(config *StubRecognizerConfig) *StubRecognizer {
	if config == nil {
		config = DefaultStubRecognizerConfig()
	}
	if config.Result.Text == "" && config.FailErr == nil && config.FailTimes == 0 {
		config.Result = DefaultStubRecognizerConfig().Result
	}
	return &StubRecognizer{config: config}
}

// Calls reports how many times Recognize reached the stub.
func (s *StubRecognizer) Calls() int64 {
	return s.calls.Load()
}

// Recognize returns the configured transcript after the optional delay.
func (s *StubRecognizer) Recognize(ctx context.Context, a audio.NormalizedAudio, languageHint string) (Transcript, error) {
	call := s.calls.Add(1)

	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		}
	}

	if int(call) <= s.config.FailTimes {
		if s.config.FailErr != nil {
			return Transcript{}, s.config.FailErr
		}
		return Transcript{}, context.DeadlineExceeded
	}

	result := s.config.Result
	if result.Language == "" {
		result.Language = languageHint
	}
	return result, nil
}

// Health returns the health status of the stub recognizer.
func (s *StubRecognizer) Health() HealthStatus {
	return HealthStatus{Healthy: true, Message: "stub recognizer ready"}
}
