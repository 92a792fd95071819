package engine

import "fmt"

// InvalidInputError rejects malformed, oversized, or unsupported input.
// It is terminal and never retried.
type InvalidInputError struct {
	Reason string
	Cause  error
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Unwrap() error { return e.Cause }

// LowQualityError rejects audio under the admission threshold. The
// measured score travels with the error so the caller can decide whether
// to re-record; the pipeline never retries quality failures.
type LowQualityError struct {
	Score     float64
	Threshold float64
}

func (e *LowQualityError) Error() string {
	return fmt.Sprintf("audio quality %.3f below threshold %.3f", e.Score, e.Threshold)
}

// RecognitionError is the terminal form of a speech-recognition failure
// after per-stage retries are exhausted.
type RecognitionError struct {
	Cause error
}

func (e *RecognitionError) Error() string {
	return "speech recognition failed: " + e.Cause.Error()
}

func (e *RecognitionError) Unwrap() error { return e.Cause }

// TranslationError is the terminal form of a translation failure for one
// target language.
type TranslationError struct {
	TargetLang string
	Cause      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation to %s failed: %v", e.TargetLang, e.Cause)
}

func (e *TranslationError) Unwrap() error { return e.Cause }

// SynthesisError is the terminal form of a speech-synthesis failure for
// one target language. It never disturbs other target languages.
type SynthesisError struct {
	TargetLang string
	Cause      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis for %s failed: %v", e.TargetLang, e.Cause)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// QueueFullError is returned synchronously from Submit when the pending
// queue hit its backpressure cap.
type QueueFullError struct {
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("translation queue full (capacity %d)", e.Capacity)
}

// ErrEngineClosed is returned from Submit after Close.
var ErrEngineClosed = fmt.Errorf("engine closed")
