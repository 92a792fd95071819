package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/asr"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/translation"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/tts"
)

// fixedScorer pins the quality score so gate behavior is deterministic.
type fixedScorer float64

func (f fixedScorer) Score(buf []byte) float64 { return float64(f) }

// speechWAV generates a clear-speech-level sine tone that passes the RMS
// gate.
func speechWAV() []byte {
	return toneWAV(0.5)
}

// whisperWAV generates a barely audible tone the gate rejects.
func whisperWAV() []byte {
	return toneWAV(0.005)
}

func toneWAV(amplitude float64) []byte {
	const rate = audio.TargetSampleRate
	samples := make([]int16, rate/10)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*440*float64(i)/rate)
		samples[i] = int16(v * math.MaxInt16)
	}
	return audio.EncodeWAV(samples, rate, 1)
}

// fastRetry keeps test runs quick: no retries, millisecond backoff.
func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: -1, InitialBackoff: time.Millisecond, CallTimeout: time.Second}
}

func newTestEngine(t *testing.T, cfg Config, deps Dependencies) *Engine {
	t.Helper()

	if deps.Recognizer == nil {
		deps.Recognizer = asr.NewStubRecognizer(nil)
	}
	if deps.Translator == nil {
		deps.Translator = translation.NewStubTranslator(nil)
	}
	if deps.Synthesizer == nil {
		deps.Synthesizer = tts.NewStubSynthesizer(nil)
	}
	if cfg.BatchInterval == 0 {
		cfg.BatchInterval = 10 * time.Millisecond
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = fastRetry()
	}

	e, err := New(cfg, deps)
	require.NoError(t, err)
	e.Start(context.Background())
	t.Cleanup(e.Close)
	return e
}

func await(t *testing.T, handle *Handle) (*Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return handle.Await(ctx)
}

func TestNewRequiresProviders(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, Dependencies{})
	require.Error(t, err)
}

func TestSubmitValidatesRequest(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{})
	ctx := context.Background()

	var invalidErr *InvalidInputError

	_, err := e.Submit(ctx, Request{Audio: speechWAV(), SourceLang: "en"})
	require.ErrorAs(t, err, &invalidErr)

	_, err = e.Submit(ctx, Request{Audio: speechWAV(), SourceLang: "xx", TargetLangs: []string{"zh"}})
	require.ErrorAs(t, err, &invalidErr)

	_, err = e.Submit(ctx, Request{Audio: speechWAV(), SourceLang: "en", TargetLangs: []string{"auto"}})
	require.ErrorAs(t, err, &invalidErr)

	_, err = e.Submit(ctx, Request{Audio: speechWAV(), TargetLangs: []string{"zh"}})
	require.ErrorAs(t, err, &invalidErr)
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	result, err := await(t, handle)
	require.NoError(t, err)

	require.Equal(t, "Hello world.", result.OriginalText)
	require.Equal(t, "en", result.DetectedLang)
	require.Equal(t, "你好，世界。", result.TranslatedText())
	require.False(t, result.FromCache)
	require.GreaterOrEqual(t, result.QualityScore, audio.DefaultQualityThreshold)

	target, ok := result.Target("zh")
	require.True(t, ok)
	require.NotNil(t, target.Audio)
	require.Equal(t, "wav", target.Audio.Encoding)
}

func TestPipelineMultipleTargets(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh", "es", "fr"},
	})
	require.NoError(t, err)

	result, err := await(t, handle)
	require.NoError(t, err)
	require.Len(t, result.Targets, 3)

	for _, target := range result.Targets {
		require.Empty(t, target.Error, "target %s failed", target.TargetLang)
		require.NotEmpty(t, target.TranslatedText)
	}
}

func TestResubmissionHitsPipelineCache(t *testing.T) {
	t.Parallel()

	recognizer := asr.NewStubRecognizer(nil)
	store := cache.NewMemory()
	e := newTestEngine(t, Config{}, Dependencies{Recognizer: recognizer, Store: store})

	req := Request{Audio: speechWAV(), SourceLang: "en", TargetLangs: []string{"zh"}}

	handle, err := e.Submit(context.Background(), req)
	require.NoError(t, err)
	first, err := await(t, handle)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	handle, err = e.Submit(context.Background(), req)
	require.NoError(t, err)
	second, err := await(t, handle)
	require.NoError(t, err)

	require.True(t, second.FromCache)
	require.Equal(t, first.TranslatedText(), second.TranslatedText())
	require.NotEqual(t, first.TaskID, second.TaskID)
	require.EqualValues(t, 1, recognizer.Calls(), "cache hit must not re-run recognition")
}

func TestAutoDetectionStoresDetectedLanguageKey(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	e := newTestEngine(t, Config{}, Dependencies{Store: store})

	buf := speechWAV()
	handle, err := e.Submit(context.Background(), Request{
		Audio:       buf,
		SourceLang:  "auto",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	result, err := await(t, handle)
	require.NoError(t, err)
	require.Equal(t, "en", result.DetectedLang)

	ctx := context.Background()
	hash := cache.HashBytes(buf)

	_, found, err := store.Get(ctx, cache.PipelineKey(hash, "auto", []string{"zh"}))
	require.NoError(t, err)
	require.True(t, found, "submitted-language key missing")

	_, found, err = store.Get(ctx, cache.PipelineKey(hash, "en", []string{"zh"}))
	require.NoError(t, err)
	require.True(t, found, "detected-language key missing")
}

func TestLowQualityAudioRejected(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       whisperWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	_, err = await(t, handle)
	var qualityErr *LowQualityError
	require.ErrorAs(t, err, &qualityErr)
	require.Less(t, qualityErr.Score, qualityErr.Threshold)
}

func TestQualityScoreAtThresholdAdmitted(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{QualityThreshold: 0.7}, Dependencies{Scorer: fixedScorer(0.7)})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	result, err := await(t, handle)
	require.NoError(t, err)
	require.InDelta(t, 0.7, result.QualityScore, 0.001)
}

func TestMalformedAudioRejected(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       []byte("definitely not audio"),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	_, err = await(t, handle)
	var invalidErr *InvalidInputError
	require.ErrorAs(t, err, &invalidErr)
}

func TestQueueFullFailsFast(t *testing.T) {
	t.Parallel()

	// Not started: nothing drains the queue.
	e, err := New(Config{QueueCapacity: 1, Retry: fastRetry()}, Dependencies{
		Recognizer:  asr.NewStubRecognizer(nil),
		Translator:  translation.NewStubTranslator(nil),
		Synthesizer: tts.NewStubSynthesizer(nil),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	ctx := context.Background()
	req := Request{Audio: speechWAV(), SourceLang: "en", TargetLangs: []string{"zh"}}

	_, err = e.Submit(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, e.QueueDepth())

	// Different audio so the second submission cannot resolve from cache.
	_, err = e.Submit(ctx, Request{Audio: whisperWAV(), SourceLang: "en", TargetLangs: []string{"zh"}})
	var fullErr *QueueFullError
	require.ErrorAs(t, err, &fullErr)
	require.Equal(t, 1, fullErr.Capacity)
}

func TestPartialTargetFailureIsIsolated(t *testing.T) {
	t.Parallel()

	synth := tts.NewStubSynthesizer(&tts.StubSynthesizerConfig{
		FailLanguages: map[string]error{"fr": errors.New("voice unavailable")},
	})
	store := cache.NewMemory()
	e := newTestEngine(t, Config{}, Dependencies{Synthesizer: synth, Store: store})

	buf := speechWAV()
	handle, err := e.Submit(context.Background(), Request{
		Audio:       buf,
		SourceLang:  "en",
		TargetLangs: []string{"zh", "fr"},
	})
	require.NoError(t, err)

	result, err := await(t, handle)
	require.NoError(t, err, "one failing target must not fail the task")

	zh, ok := result.Target("zh")
	require.True(t, ok)
	require.Empty(t, zh.Error)
	require.NotNil(t, zh.Audio)

	fr, ok := result.Target("fr")
	require.True(t, ok)
	require.NotEmpty(t, fr.Error)
	require.NotEmpty(t, fr.TranslatedText, "translation survives a synthesis failure")
	require.Nil(t, fr.Audio)

	// Partial results are never replayed from cache.
	_, found, err := store.Get(context.Background(), cache.PipelineKey(cache.HashBytes(buf), "en", []string{"zh", "fr"}))
	require.NoError(t, err)
	require.False(t, found)
}

func TestAllTargetsFailingRejectsTask(t *testing.T) {
	t.Parallel()

	translator := translation.NewStubTranslator(&translation.StubTranslatorConfig{
		FailTimes: 100,
		FailErr:   errors.New("provider down"),
	})
	e := newTestEngine(t, Config{}, Dependencies{Translator: translator})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	_, err = await(t, handle)
	var translationErr *TranslationError
	require.ErrorAs(t, err, &translationErr)
	require.Equal(t, "zh", translationErr.TargetLang)
}

func TestTextOnlySkipsSynthesis(t *testing.T) {
	t.Parallel()

	synth := tts.NewStubSynthesizer(nil)
	e := newTestEngine(t, Config{}, Dependencies{Synthesizer: synth})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
		Options:     Options{TextOnly: true},
	})
	require.NoError(t, err)

	result, err := await(t, handle)
	require.NoError(t, err)
	require.NotEmpty(t, result.TranslatedText())

	target, _ := result.Target("zh")
	require.Nil(t, target.Audio)
	require.EqualValues(t, 0, synth.Calls())
}

func TestRetryRecoversTransientFailure(t *testing.T) {
	t.Parallel()

	recognizer := asr.NewStubRecognizer(&asr.StubRecognizerConfig{
		FailTimes: 1,
		FailErr:   errors.New("transient"),
	})
	e := newTestEngine(t, Config{
		Retry: RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, CallTimeout: time.Second},
	}, Dependencies{Recognizer: recognizer})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	result, err := await(t, handle)
	require.NoError(t, err)
	require.Equal(t, "Hello world.", result.OriginalText)
	require.EqualValues(t, 2, recognizer.Calls())
}

func TestRetriesExhaustedSurfaceStageError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("permanently down")
	recognizer := asr.NewStubRecognizer(&asr.StubRecognizerConfig{
		FailTimes: 100,
		FailErr:   wantErr,
	})
	e := newTestEngine(t, Config{
		Retry: RetryPolicy{MaxRetries: 1, InitialBackoff: time.Millisecond, CallTimeout: time.Second},
	}, Dependencies{Recognizer: recognizer})

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	_, err = await(t, handle)
	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	require.ErrorIs(t, err, wantErr)
	require.EqualValues(t, 2, recognizer.Calls(), "one initial attempt plus one retry")
}

func TestCloseRejectsPendingTasks(t *testing.T) {
	t.Parallel()

	e, err := New(Config{Retry: fastRetry()}, Dependencies{
		Recognizer:  asr.NewStubRecognizer(nil),
		Translator:  translation.NewStubTranslator(nil),
		Synthesizer: tts.NewStubSynthesizer(nil),
	})
	require.NoError(t, err)

	handle, err := e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.NoError(t, err)

	e.Close()

	_, err = await(t, handle)
	require.ErrorIs(t, err, ErrEngineClosed)

	_, err = e.Submit(context.Background(), Request{
		Audio:       speechWAV(),
		SourceLang:  "en",
		TargetLangs: []string{"zh"},
	})
	require.ErrorIs(t, err, ErrEngineClosed)
}

func TestStatsTrackOutcomes(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{Store: cache.NewMemory()})
	ctx := context.Background()

	good := Request{Audio: speechWAV(), SourceLang: "en", TargetLangs: []string{"zh"}}
	bad := Request{Audio: whisperWAV(), SourceLang: "en", TargetLangs: []string{"zh"}}

	handle, err := e.Submit(ctx, good)
	require.NoError(t, err)
	_, err = await(t, handle)
	require.NoError(t, err)

	handle, err = e.Submit(ctx, bad)
	require.NoError(t, err)
	_, err = await(t, handle)
	require.Error(t, err)

	// Cache hit for the good request counts as attempted + hit.
	handle, err = e.Submit(ctx, good)
	require.NoError(t, err)
	_, err = await(t, handle)
	require.NoError(t, err)

	view := e.Stats()
	require.EqualValues(t, 3, view.Attempted)
	require.EqualValues(t, 2, view.Succeeded)
	require.EqualValues(t, 1, view.Failed)
	require.EqualValues(t, 1, view.CacheHits)
	require.InDelta(t, 66.67, view.SuccessRate, 0.01)
	require.EqualValues(t, 3, view.LanguagePairs["en-zh"])
}

func TestSupportedLanguages(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{})
	langs := e.SupportedLanguages()
	require.NotEmpty(t, langs)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{Store: cache.NewMemory()})
	health := e.HealthCheck(context.Background())

	require.True(t, health.Recognizer)
	require.True(t, health.Translator)
	require.True(t, health.Synthesizer)
	require.True(t, health.Cache)
}

func TestHealthCheckReportsDeadCache(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, Dependencies{Store: cache.NewNoop()})
	health := e.HealthCheck(context.Background())

	require.True(t, health.Recognizer)
	require.False(t, health.Cache)
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	e := newTestEngine(t, Config{}, Dependencies{Store: store})

	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), 0))
	require.True(t, e.ClearCache(context.Background()))
	require.Equal(t, 0, store.Len())
}
