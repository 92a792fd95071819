// Package di wires the engine's collaborators for production and test
// environments.
package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/asr"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/config"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/engine"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/stats"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/translation"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/tts"
)

// Container holds all service dependencies for the translation engine.
// It enables dependency injection for both production and test
// environments.
type Container struct {
	Recognizer  asr.Recognizer
	Translator  translation.Translator
	Synthesizer tts.Synthesizer
	Store       cache.Cache
	Collector   *stats.Collector
	Metrics     *stats.PromInstruments
	Sink        *stats.PostgresSink
	Normalizer  audio.Normalizer
	Enhanced    audio.Normalizer
	Validator   *audio.Validator
	Scorer      audio.Scorer
	Logger      *zap.SugaredLogger
}

// ContainerOption configures a container during construction.
type ContainerOption func(*Container)

// WithRecognizer sets the speech recognizer implementation.
func WithRecognizer(r asr.Recognizer) ContainerOption {
	return func(c *Container) { c.Recognizer = r }
}

// WithTranslator sets the translator implementation.
func WithTranslator(t translation.Translator) ContainerOption {
	return func(c *Container) { c.Translator = t }
}

// WithSynthesizer sets the synthesizer implementation.
func WithSynthesizer(s tts.Synthesizer) ContainerOption {
	return func(c *Container) { c.Synthesizer = s }
}

// WithStore sets the cache store implementation.
func WithStore(store cache.Cache) ContainerOption {
	return func(c *Container) { c.Store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) ContainerOption {
	return func(c *Container) { c.Logger = logger }
}

// NewContainer creates a container with the given options.
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTestContainer creates a container with stub implementations and an
// in-memory cache, for testing without external dependencies.
func NewTestContainer() *Container {
	logger := zap.NewNop().Sugar()
	store := cache.NewMemory()

	return &Container{
		Recognizer:  asr.NewStubRecognizer(nil),
		Translator:  translation.NewCachedTranslator(translation.NewStubTranslator(nil), store, 0, logger),
		Synthesizer: tts.NewStubSynthesizer(nil),
		Store:       store,
		Collector:   stats.NewCollector(logger),
		Logger:      logger,
	}
}

// FromConfig builds the production container: provider chains wrapped in
// stage caches, the redis store, and the optional observability extras.
func FromConfig(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &Container{Logger: logger}

	c.Store = cache.NewNoop()
	if cfg.RedisAddr != "" {
		store, err := cache.NewRedis(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("cache store: %w", err)
		}
		c.Store = store
	}

	formats := make([]audio.Format, 0, len(cfg.Audio.Formats))
	for _, f := range cfg.Audio.Formats {
		formats = append(formats, audio.Format(f))
	}
	c.Validator = audio.NewValidator(audio.ValidatorConfig{
		MaxBytes: cfg.Audio.MaxBytes,
		Formats:  formats,
	})
	c.Scorer = audio.NewRMSScorer(audio.RMSScorerConfig{FallbackScore: cfg.Engine.QualityThreshold})
	c.Normalizer = audio.NewPCMNormalizer(audio.PCMNormalizerConfig{})
	if cfg.Audio.FFmpegPath != "" {
		c.Enhanced = audio.NewFFmpegNormalizer(audio.FFmpegNormalizerConfig{
			BinaryPath: cfg.Audio.FFmpegPath,
			Denoise:    cfg.Audio.Denoise,
		})
	}

	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required for the hosted providers")
	}

	recognizer := asr.NewChain(logger, asr.NewOpenAIRecognizer(asr.OpenAIRecognizerConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.WhisperModel,
	}, logger))
	c.Recognizer = asr.NewCachedRecognizer(recognizer, c.Store, 0, logger)

	translators := []translation.Translator{
		translation.NewOpenAITranslator(translation.OpenAITranslatorConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.ChatModel,
		}, logger),
	}
	if cfg.Libre.URL != "" {
		translators = append(translators, translation.NewLibreTranslator(cfg.Libre.URL, cfg.Libre.APIKey, logger))
	}
	c.Translator = translation.NewCachedTranslator(translation.NewChain(logger, translators...), c.Store, 0, logger)

	synthesizer := tts.NewChain(logger, tts.NewOpenAISynthesizer(tts.OpenAISynthesizerConfig{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Model:        cfg.OpenAI.SpeechModel,
		DefaultVoice: cfg.OpenAI.DefaultVoice,
	}, logger))
	c.Synthesizer = tts.NewCachedSynthesizer(synthesizer, c.Store, 0, logger)

	c.Collector = stats.NewCollector(logger)
	if cfg.Stats.Prometheus {
		c.Metrics = stats.NewPromInstruments(prometheus.DefaultRegisterer)
	}
	if cfg.Stats.PostgresURL != "" {
		sink, err := stats.NewPostgresSink(ctx, cfg.Stats.PostgresURL, logger)
		if err != nil {
			// The sink is optional observability; a dead database must
			// not keep the engine down.
			logger.Warnw("stats sink disabled", "error", err)
		} else {
			c.Sink = sink
		}
	}

	return c, nil
}

// Engine constructs an engine from the container's collaborators.
func (c *Container) Engine(cfg engine.Config) (*engine.Engine, error) {
	return engine.New(cfg, engine.Dependencies{
		Validator:   c.Validator,
		Scorer:      c.Scorer,
		Normalizer:  c.Normalizer,
		Enhanced:    c.Enhanced,
		Recognizer:  c.Recognizer,
		Translator:  c.Translator,
		Synthesizer: c.Synthesizer,
		Store:       c.Store,
		Collector:   c.Collector,
		Metrics:     c.Metrics,
		Logger:      c.Logger,
	})
}

// Close releases container-owned resources.
func (c *Container) Close() {
	if c.Sink != nil {
		if err := c.Sink.Close(); err != nil {
			c.Logger.Errorw("failed to close stats sink", "error", err)
		}
	}
	if closer, ok := c.Store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Errorw("failed to close cache store", "error", err)
		}
	}
}
