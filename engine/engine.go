// Package engine implements the admission-controlled voice-translation
// pipeline: a bounded task queue drained in periodic batches, with
// per-task isolation, multi-level caching, and quality-gated admission.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/asr"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/stats"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/translation"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/tts"
)

const (
	// DefaultBatchSize bounds how many tasks one tick drains.
	DefaultBatchSize = 5
	// DefaultBatchInterval is the scheduler tick.
	DefaultBatchInterval = time.Second
	// DefaultQueueCapacity is the backpressure cap on pending tasks.
	DefaultQueueCapacity = 100
	// DefaultPipelineTTL bounds whole-pipeline cache entries.
	DefaultPipelineTTL = time.Hour
	// DefaultStatsPersistInterval paces best-effort stats persistence.
	DefaultStatsPersistInterval = 30 * time.Second
)

// Config tunes the engine. Zero values fall back to the defaults above.
type Config struct {
	BatchSize            int
	BatchInterval        time.Duration
	QueueCapacity        int
	QualityThreshold     float64
	Retry                RetryPolicy
	PipelineTTL          time.Duration
	StatsPersistInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = DefaultBatchInterval
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = audio.DefaultQualityThreshold
	}
	c.Retry = c.Retry.withDefaults()
	if c.PipelineTTL <= 0 {
		c.PipelineTTL = DefaultPipelineTTL
	}
	if c.StatsPersistInterval <= 0 {
		c.StatsPersistInterval = DefaultStatsPersistInterval
	}
	return c
}

// Dependencies are the engine's injected collaborators. Nil optional
// fields fall back to in-process defaults.
type Dependencies struct {
	Validator   *audio.Validator
	Scorer      audio.Scorer
	Normalizer  audio.Normalizer
	Enhanced    audio.Normalizer // used when a request asks for enhancement
	Recognizer  asr.Recognizer
	Translator  translation.Translator
	Synthesizer tts.Synthesizer
	Store       cache.Cache
	Collector   *stats.Collector
	Metrics     *stats.PromInstruments
	Logger      *zap.SugaredLogger
}

// Health reports each collaborator independently so partial degradation
// stays visible.
type Health struct {
	Recognizer  bool `json:"recognizer"`
	Translator  bool `json:"translator"`
	Synthesizer bool `json:"synthesizer"`
	Cache       bool `json:"cache"`
}

// Engine is the translation pipeline orchestrator.
type Engine struct {
	config Config
	logger *zap.SugaredLogger

	validator   *audio.Validator
	scorer      audio.Scorer
	gate        *audio.Gate
	normalizer  audio.Normalizer
	enhanced    audio.Normalizer
	recognizer  asr.Recognizer
	translator  translation.Translator
	synthesizer tts.Synthesizer
	store       cache.Cache
	collector   *stats.Collector
	metrics     *stats.PromInstruments

	mu       sync.Mutex
	pending  []*task
	draining bool
	closed   bool

	cancel context.CancelFunc
	loops  sync.WaitGroup
}

// New constructs an engine. Recognizer, Translator, and Synthesizer are
// required; everything else has a default.
func New(config Config, deps Dependencies) (*Engine, error) {
	if deps.Recognizer == nil || deps.Translator == nil || deps.Synthesizer == nil {
		return nil, fmt.Errorf("engine: recognizer, translator, and synthesizer are required")
	}

	config = config.withDefaults()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}
	if deps.Validator == nil {
		deps.Validator = audio.NewValidator(audio.ValidatorConfig{})
	}
	if deps.Scorer == nil {
		deps.Scorer = audio.NewRMSScorer(audio.RMSScorerConfig{FallbackScore: config.QualityThreshold})
	}
	if deps.Normalizer == nil {
		deps.Normalizer = audio.NewPCMNormalizer(audio.PCMNormalizerConfig{})
	}
	if deps.Store == nil {
		deps.Store = cache.NewNoop()
	}
	if deps.Collector == nil {
		deps.Collector = stats.NewCollector(deps.Logger)
	}

	return &Engine{
		config:      config,
		logger:      deps.Logger,
		validator:   deps.Validator,
		scorer:      deps.Scorer,
		gate:        audio.NewGate(config.QualityThreshold),
		normalizer:  deps.Normalizer,
		enhanced:    deps.Enhanced,
		recognizer:  deps.Recognizer,
		translator:  deps.Translator,
		synthesizer: deps.Synthesizer,
		store:       deps.Store,
		collector:   deps.Collector,
		metrics:     deps.Metrics,
	}, nil
}

// Start restores persisted stats and launches the scheduler. It returns
// immediately; the engine runs until Close.
func (e *Engine) Start(ctx context.Context) {
	e.collector.Restore(ctx, e.store)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.loops.Add(2)
	go e.runScheduler(runCtx)
	go e.runStatsPersistence(runCtx)

	e.logger.Infow("engine started",
		"batchSize", e.config.BatchSize,
		"batchInterval", e.config.BatchInterval.String(),
		"queueCapacity", e.config.QueueCapacity,
		"qualityThreshold", e.config.QualityThreshold,
	)
}

// Close stops the scheduler and rejects tasks still waiting in the queue.
// In-flight batch tasks run to their terminal outcome.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	rejected := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, t := range rejected {
		t.state = TaskRejected
		t.handle.complete(nil, ErrEngineClosed)
	}

	if e.cancel != nil {
		e.cancel()
		e.loops.Wait()
	}
	e.logger.Infow("engine stopped", "rejectedPending", len(rejected))
}

// Submit admits one translation request. On a whole-pipeline cache hit
// the returned handle is already resolved; otherwise the task is queued
// for the next batch. Submission never blocks on pipeline execution.
func (e *Engine) Submit(ctx context.Context, req Request) (*Handle, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	taskID := uuid.NewString()
	pipelineKey := cache.PipelineKey(cache.HashBytes(req.Audio), req.SourceLang, req.TargetLangs)

	if handle, ok := e.resolveFromCache(ctx, taskID, pipelineKey, req); ok {
		return handle, nil
	}

	t := &task{
		id:          taskID,
		request:     req,
		pipelineKey: pipelineKey,
		submittedAt: time.Now().UTC(),
		state:       TaskSubmitted,
		handle:      newHandle(taskID),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if len(e.pending) >= e.config.QueueCapacity {
		e.mu.Unlock()
		return nil, &QueueFullError{Capacity: e.config.QueueCapacity}
	}
	t.state = TaskQueued
	e.pending = append(e.pending, t)
	depth := len(e.pending)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SetQueueDepth(depth)
	}
	e.logger.Debugw("task queued", "taskID", t.id, "queueDepth", depth)
	return t.handle, nil
}

// resolveFromCache short-circuits the whole pipeline on a result hit.
func (e *Engine) resolveFromCache(ctx context.Context, taskID, key string, req Request) (*Handle, bool) {
	payload, ok, err := e.store.Get(ctx, key)
	if err != nil {
		e.logger.Debugw("pipeline cache unavailable", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		e.logger.Warnw("discarding corrupt pipeline cache entry", "key", key)
		return nil, false
	}

	result.TaskID = taskID
	result.FromCache = true

	e.collector.Record(stats.Outcome{
		Success:      true,
		FromCache:    true,
		QualityScore: result.QualityScore,
		SourceLang:   req.SourceLang,
		TargetLangs:  req.TargetLangs,
	})

	handle := newHandle(taskID)
	handle.complete(&result, nil)
	e.logger.Debugw("pipeline cache hit", "taskID", taskID)
	return handle, true
}

// Stats returns a read-only snapshot of the aggregate counters.
func (e *Engine) Stats() stats.View {
	return e.collector.Snapshot()
}

// SupportedLanguages lists the engine's language registry.
func (e *Engine) SupportedLanguages() []translation.Language {
	return translation.SupportedLanguages()
}

// HealthCheck probes each collaborator independently.
func (e *Engine) HealthCheck(ctx context.Context) Health {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return Health{
		Recognizer:  e.recognizer.Health().Healthy,
		Translator:  e.translator.Health().Healthy,
		Synthesizer: e.synthesizer.Health().Healthy,
		Cache:       e.store.Ping(pingCtx) == nil,
	}
}

// ClearCache flushes the backing store.
func (e *Engine) ClearCache(ctx context.Context) bool {
	if err := e.store.Flush(ctx); err != nil {
		e.logger.Warnw("cache flush failed", "error", err)
		return false
	}
	return true
}

// QueueDepth reports the number of pending tasks.
func (e *Engine) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func validateRequest(req Request) error {
	if len(req.TargetLangs) == 0 {
		return &InvalidInputError{Reason: "no target languages"}
	}
	if req.SourceLang == "" {
		return &InvalidInputError{Reason: "missing source language"}
	}
	if !translation.IsSupported(req.SourceLang) {
		return &InvalidInputError{Reason: fmt.Sprintf("unsupported source language %q", req.SourceLang)}
	}
	for _, lang := range req.TargetLangs {
		if lang == "auto" || !translation.IsSupported(lang) {
			return &InvalidInputError{Reason: fmt.Sprintf("unsupported target language %q", lang)}
		}
	}
	return nil
}
