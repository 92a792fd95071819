package tts

import (
	"context"
	"strconv"
)

// VoiceOptions selects voice characteristics for synthesis.
type VoiceOptions struct {
	// Voice is the provider voice identifier (e.g. "alloy").
	Voice string `json:"voice"`
	// SpeakingRate scales speech speed; 0 means provider default.
	SpeakingRate float64 `json:"speakingRate,omitempty"`
	// Pitch shifts voice pitch in semitones; 0 means unchanged.
	Pitch float64 `json:"pitch,omitempty"`
}

// Fingerprint returns a stable string for cache keying.
func (o VoiceOptions) Fingerprint() string {
	return o.Voice + "/" +
		strconv.FormatFloat(o.SpeakingRate, 'f', 2, 64) + "/" +
		strconv.FormatFloat(o.Pitch, 'f', 2, 64)
}

// Audio is synthesized speech plus its encoding metadata.
type Audio struct {
	// Data contains the encoded audio bytes.
	Data []byte `json:"data"`
	// Encoding is the container/codec (e.g. "mp3", "wav").
	Encoding string `json:"encoding"`
	// SampleRate is the audio sample rate in Hz, when known.
	SampleRate int `json:"sampleRate,omitempty"`
}

// HealthStatus represents the health of a synthesizer.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	// Synthesize generates audio for text in the given language.
	Synthesize(ctx context.Context, text, targetLang string, voice VoiceOptions) (Audio, error)

	// Health returns the current health status of the synthesizer.
	Health() HealthStatus
}
