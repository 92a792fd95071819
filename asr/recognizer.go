package asr

import (
	"context"
	"time"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
)

// Word represents a single word with timing information.
type Word struct {
	Text      string        `json:"text"`
	StartTime time.Duration `json:"startTime"`
	EndTime   time.Duration `json:"endTime"`
}

// Transcript represents recognized speech for one audio buffer.
type Transcript struct {
	// Text is the full transcribed text.
	Text string `json:"text"`
	// Confidence is the recognition confidence score (0.0 - 1.0).
	Confidence float64 `json:"confidence"`
	// Language is the detected source language (ISO 639-1 code).
	Language string `json:"language"`
	// Words contains word-level timing when the provider reports it.
	Words []Word `json:"words,omitempty"`
}

// HealthStatus represents the health of a recognizer.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Recognizer transcribes normalized audio to text.
type Recognizer interface {
	// Recognize converts audio into a transcript. languageHint is an ISO
	// 639-1 code or "auto" for provider-side detection.
	Recognize(ctx context.Context, a audio.NormalizedAudio, languageHint string) (Transcript, error)

	// Health returns the current health status of the recognizer.
	Health() HealthStatus
}
