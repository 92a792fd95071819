package audio

import (
	"bytes"
	"fmt"
)

// Format identifies a supported audio container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOGG  Format = "ogg"
	FormatFLAC Format = "flac"
	FormatWebM Format = "webm"

	// FormatUnknown is reported when no container signature matches.
	FormatUnknown Format = "unknown"
)

// DefaultMaxBytes caps uploads at 10 MiB.
const DefaultMaxBytes = 10 << 20

// ValidationError reports why an audio buffer was rejected before any
// pipeline work was spent on it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid audio: " + e.Reason
}

// ValidatorConfig controls input admission.
type ValidatorConfig struct {
	// MaxBytes is the largest accepted buffer. Zero means DefaultMaxBytes.
	MaxBytes int
	// Formats is the accepted container set. Empty means all known formats.
	Formats []Format
}

// Validator rejects malformed, oversized, or unsupported audio input.
// It is pure and safe for concurrent use.
type Validator struct {
	maxBytes int
	formats  map[Format]bool
}

// NewValidator creates a validator with the given config.
func NewValidator(config ValidatorConfig) *Validator {
	maxBytes := config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	formats := make(map[Format]bool)
	if len(config.Formats) == 0 {
		for _, f := range []Format{FormatWAV, FormatMP3, FormatOGG, FormatFLAC, FormatWebM} {
			formats[f] = true
		}
	} else {
		for _, f := range config.Formats {
			formats[f] = true
		}
	}

	return &Validator{maxBytes: maxBytes, formats: formats}
}

// Validate checks the buffer against size and container constraints.
func (v *Validator) Validate(buf []byte) error {
	if len(buf) == 0 {
		return &ValidationError{Reason: "empty audio buffer"}
	}
	if len(buf) > v.maxBytes {
		return &ValidationError{Reason: fmt.Sprintf("audio exceeds %d bytes (got %d)", v.maxBytes, len(buf))}
	}

	format := DetectFormat(buf)
	if format == FormatUnknown {
		return &ValidationError{Reason: "unrecognized audio container"}
	}
	if !v.formats[format] {
		return &ValidationError{Reason: fmt.Sprintf("unsupported audio format %q", format)}
	}
	return nil
}

// DetectFormat sniffs the container type from the buffer's magic bytes.
func DetectFormat(buf []byte) Format {
	switch {
	case len(buf) >= 12 && bytes.Equal(buf[0:4], []byte("RIFF")) && bytes.Equal(buf[8:12], []byte("WAVE")):
		return FormatWAV
	case len(buf) >= 4 && bytes.Equal(buf[0:4], []byte("OggS")):
		return FormatOGG
	case len(buf) >= 4 && bytes.Equal(buf[0:4], []byte("fLaC")):
		return FormatFLAC
	case len(buf) >= 3 && bytes.Equal(buf[0:3], []byte("ID3")):
		return FormatMP3
	case len(buf) >= 2 && buf[0] == 0xFF && buf[1]&0xE0 == 0xE0:
		return FormatMP3
	case len(buf) >= 4 && bytes.Equal(buf[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	default:
		return FormatUnknown
	}
}
