package translation

import (
	"context"
	"sync/atomic"
	"time"
)

// StubTranslatorConfig configures the stub translator behavior.
type StubTranslatorConfig struct {
	// ProcessingDelay simulates translation processing time.
	ProcessingDelay time.Duration
	// Dictionary maps source text to translated text per target language.
	// If nil, returns "[LANG] " prefix + original text.
	Dictionary map[string]map[string]string // [targetLang][sourceText]translatedText
	// FailTimes causes the first N calls to fail with FailErr.
	FailTimes int
	// FailErr is the injected failure.
	FailErr error
}

// DefaultStubTranslatorConfig returns sensible defaults for testing.
func DefaultStubTranslatorConfig() *StubTranslatorConfig {
	return &StubTranslatorConfig{
		Dictionary: map[string]map[string]string{
			"zh": {
				"hello":        "你好",
				"Hello world.": "你好，世界。",
			},
			"es": {
				"hello":        "hola",
				"Hello world.": "Hola mundo.",
			},
			"fr": {
				"hello":        "bonjour",
				"Hello world.": "Bonjour le monde.",
			},
		},
	}
}

// StubTranslator is a test implementation that returns deterministic
// translations and counts provider calls.
type StubTranslator struct {
	config *StubTranslatorConfig
	calls  atomic.Int64
}

// NewStubTranslator creates a new stub translator with the given config.
// If config is nil, defaults are used.
func NewStubTranslator(config *StubTranslatorConfig) *StubTranslator {
	if config == nil {
		config = DefaultStubTranslatorConfig()
	}
	return &StubTranslator{config: config}
}

// Calls reports how many times Translate reached the stub.
func (s *StubTranslator) Calls() int64 {
	return s.calls.Load()
}

// Translate looks the text up in the dictionary, falling back to a
// "[lang] text" marker.
func (s *StubTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (Translation, error) {
	call := s.calls.Add(1)

	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return Translation{}, ctx.Err()
		}
	}

	if int(call) <= s.config.FailTimes {
		if s.config.FailErr != nil {
			return Translation{}, s.config.FailErr
		}
		return Translation{}, context.DeadlineExceeded
	}

	translated := ""
	if byLang := s.config.Dictionary[targetLang]; byLang != nil {
		translated = byLang[text]
	}
	if translated == "" {
		translated = "[" + targetLang + "] " + text
	}

	return Translation{
		SourceText:     text,
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Confidence:     0.95,
	}, nil
}

// Health returns the health status of the stub translator.
func (s *StubTranslator) Health() HealthStatus {
	return HealthStatus{Healthy: true, Message: "stub translator ready"}
}
