package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/asr"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/cache"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/stats"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/translation"
	"github.com/yb1734492970508/CultureBridge-Backend-sub001/tts"
)

// processTask runs the full stage pipeline for one task. Every exit path
// delivers a terminal outcome to the handle and records stats; a failing
// task never disturbs its batch siblings.
func (e *Engine) processTask(ctx context.Context, t *task) {
	t.state = TaskRunning
	start := time.Now()
	req := t.request

	reject := func(score float64, err error) {
		t.state = TaskRejected
		e.record(req, score, time.Since(start), false)
		t.handle.complete(nil, err)
		e.logger.Infow("task rejected",
			"taskID", t.id,
			"error", err,
			"durationMs", time.Since(start).Milliseconds(),
		)
	}

	// Stage 1: validation. Terminal, never retried.
	if err := e.validator.Validate(req.Audio); err != nil {
		reject(0, &InvalidInputError{Reason: err.Error(), Cause: err})
		return
	}

	// Stage 2: quality gate. Terminal: re-recording is a user action,
	// not a transient fault.
	score := e.scorer.Score(req.Audio)
	if !e.gate.Admits(score) {
		reject(score, &LowQualityError{Score: score, Threshold: e.gate.Threshold})
		return
	}

	// Stage 3: preprocessing.
	normalized, err := e.normalize(ctx, req)
	if err != nil {
		reject(score, &InvalidInputError{Reason: "audio could not be normalized", Cause: err})
		return
	}

	// Stage 4: recognition, retried per stage.
	var transcript asr.Transcript
	recErr := retryStage(ctx, e.config.Retry, e.logger, "recognize", func(callCtx context.Context) error {
		var err error
		transcript, err = e.recognizer.Recognize(callCtx, normalized, req.SourceLang)
		return err
	})
	if recErr != nil {
		reject(score, &RecognitionError{Cause: recErr})
		return
	}

	sourceLang := detectedLanguage(transcript, req.SourceLang)

	// Stages 5-6: per-target translation and synthesis, isolated per
	// language pair.
	targets := make([]TargetResult, 0, len(req.TargetLangs))
	translated := 0
	var firstErr error
	for _, lang := range req.TargetLangs {
		target, err := e.processTarget(ctx, transcript.Text, sourceLang, lang, req.Options)
		if target.TranslatedText != "" {
			translated++
		} else if firstErr == nil {
			firstErr = err
		}
		targets = append(targets, target)
	}
	if translated == 0 {
		if firstErr == nil {
			firstErr = &TranslationError{TargetLang: req.TargetLangs[0], Cause: translation.ErrNoProviders}
		}
		reject(score, firstErr)
		return
	}

	result := &Result{
		TaskID:           t.id,
		OriginalText:     transcript.Text,
		SourceLang:       req.SourceLang,
		DetectedLang:     sourceLang,
		Targets:          targets,
		QualityScore:     score,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}

	e.storeResult(ctx, t, req, sourceLang, result)

	t.state = TaskResolved
	e.record(req, score, time.Since(start), true)
	t.handle.complete(result, nil)
	e.logger.Infow("task resolved",
		"taskID", t.id,
		"sourceLang", sourceLang,
		"targets", len(targets),
		"durationMs", result.ProcessingTimeMs,
	)
}

// processTarget translates and synthesizes one target language. A
// synthesis failure keeps the translation and only annotates the entry.
// The returned error is the typed stage failure, nil on full success.
func (e *Engine) processTarget(ctx context.Context, text, sourceLang, targetLang string, opts Options) (TargetResult, error) {
	target := TargetResult{TargetLang: targetLang}

	var trans translation.Translation
	err := retryStage(ctx, e.config.Retry, e.logger, "translate", func(callCtx context.Context) error {
		var err error
		trans, err = e.translator.Translate(callCtx, text, sourceLang, targetLang)
		return err
	})
	if err != nil {
		stageErr := &TranslationError{TargetLang: targetLang, Cause: err}
		target.Error = stageErr.Error()
		return target, stageErr
	}

	target.TranslatedText = trans.TranslatedText
	target.Confidence = trans.Confidence

	if opts.TextOnly {
		return target, nil
	}

	var synthesized tts.Audio
	err = retryStage(ctx, e.config.Retry, e.logger, "synthesize", func(callCtx context.Context) error {
		var err error
		synthesized, err = e.synthesizer.Synthesize(callCtx, trans.TranslatedText, targetLang, opts.Voice)
		return err
	})
	if err != nil {
		stageErr := &SynthesisError{TargetLang: targetLang, Cause: err}
		target.Error = stageErr.Error()
		return target, stageErr
	}

	target.Audio = &synthesized
	return target, nil
}

func (e *Engine) normalize(ctx context.Context, req Request) (audio.NormalizedAudio, error) {
	if req.Options.EnhanceAudio && e.enhanced != nil {
		return e.enhanced.Normalize(ctx, req.Audio)
	}
	return e.normalizer.Normalize(ctx, req.Audio)
}

// storeResult caches the whole-pipeline result. Only fully clean results
// are stored so a transient per-target failure is never replayed from
// cache. The entry is written under the submitted source language and,
// when detection resolved "auto", under the detected language too.
func (e *Engine) storeResult(ctx context.Context, t *task, req Request, detected string, result *Result) {
	for _, target := range result.Targets {
		if target.Error != "" {
			return
		}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		e.logger.Errorw("failed to marshal pipeline result", "taskID", t.id, "error", err)
		return
	}

	audioHash := cache.HashBytes(req.Audio)
	keys := []string{t.pipelineKey}
	if detected != req.SourceLang {
		keys = append(keys, cache.PipelineKey(audioHash, detected, req.TargetLangs))
	}
	for _, key := range keys {
		if err := e.store.Set(ctx, key, payload, e.config.PipelineTTL); err != nil {
			e.logger.Debugw("pipeline cache store failed", "taskID", t.id, "error", err)
			return
		}
	}
}

func (e *Engine) record(req Request, score float64, latency time.Duration, success bool) {
	outcome := stats.Outcome{
		Success:      success,
		Latency:      latency,
		QualityScore: score,
		SourceLang:   req.SourceLang,
		TargetLangs:  req.TargetLangs,
	}
	e.collector.Record(outcome)
	if e.metrics != nil {
		e.metrics.Observe(outcome)
	}
}

func detectedLanguage(transcript asr.Transcript, requested string) string {
	if transcript.Language != "" {
		return transcript.Language
	}
	if requested != "" && requested != "auto" {
		return requested
	}
	return "en"
}
