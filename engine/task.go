package engine

import (
	"context"
	"sync"
	"time"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/tts"
)

// Options tunes a single submission.
type Options struct {
	// Voice selects synthesis voice characteristics.
	Voice tts.VoiceOptions `json:"voice"`
	// EnhanceAudio routes preprocessing through the enhanced (ffmpeg)
	// normalizer when one is configured.
	EnhanceAudio bool `json:"enhanceAudio,omitempty"`
	// TextOnly skips speech synthesis entirely.
	TextOnly bool `json:"textOnly,omitempty"`
}

// Request is the immutable input of one translation task.
type Request struct {
	// Audio is the raw recorded audio buffer.
	Audio []byte
	// SourceLang is an ISO 639-1 code or "auto" for detection.
	SourceLang string
	// TargetLangs are the requested output languages.
	TargetLangs []string
	// Options tunes synthesis and preprocessing.
	Options Options
}

// TaskState tracks a task through the queue.
type TaskState string

const (
	TaskSubmitted TaskState = "submitted"
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskResolved  TaskState = "resolved"
	TaskRejected  TaskState = "rejected"
)

// TargetResult is the per-language portion of a pipeline result. A
// failing target carries an Error annotation without affecting siblings.
type TargetResult struct {
	TargetLang     string     `json:"targetLang"`
	TranslatedText string     `json:"translatedText,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	Audio          *tts.Audio `json:"audio,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Result is the end-to-end outcome of one task.
type Result struct {
	TaskID           string         `json:"taskId"`
	OriginalText     string         `json:"originalText"`
	SourceLang       string         `json:"sourceLang"`
	DetectedLang     string         `json:"detectedLang"`
	Targets          []TargetResult `json:"targets"`
	QualityScore     float64        `json:"qualityScore"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	Timestamp        time.Time      `json:"timestamp"`
	FromCache        bool           `json:"fromCache"`
}

// TranslatedText returns the first successful target's text, the common
// single-target convenience.
func (r *Result) TranslatedText() string {
	for _, target := range r.Targets {
		if target.Error == "" {
			return target.TranslatedText
		}
	}
	return ""
}

// Target returns the entry for one language, if present.
func (r *Result) Target(lang string) (TargetResult, bool) {
	for _, target := range r.Targets {
		if target.TargetLang == lang {
			return target, true
		}
	}
	return TargetResult{}, false
}

// task is the queue's internal unit of work. It is owned exclusively by
// the queue from submission until its handle is completed.
type task struct {
	id          string
	request     Request
	pipelineKey string
	submittedAt time.Time
	state       TaskState
	handle      *Handle
}

// Handle is the caller's pending result. Discarding it is safe: the task
// still runs to a terminal outcome and frees its resources.
type Handle struct {
	taskID string

	once   sync.Once
	done   chan struct{}
	result *Result
	err    error
}

func newHandle(taskID string) *Handle {
	return &Handle{taskID: taskID, done: make(chan struct{})}
}

// TaskID identifies the underlying task.
func (h *Handle) TaskID() string { return h.taskID }

// Done is closed once the task reached a terminal outcome.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Await blocks until the task completes or ctx is cancelled.
func (h *Handle) Await(ctx context.Context) (*Result, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete delivers the terminal outcome exactly once.
func (h *Handle) complete(result *Result, err error) {
	h.once.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
	})
}
