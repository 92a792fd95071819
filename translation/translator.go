package translation

import "context"

// Translation represents a translated text segment.
type Translation struct {
	// SourceText is the original text that was translated.
	SourceText string `json:"sourceText"`
	// TranslatedText is the translated result.
	TranslatedText string `json:"translatedText"`
	// SourceLang is the source language (ISO 639-1 code).
	SourceLang string `json:"sourceLang"`
	// TargetLang is the target language (ISO 639-1 code).
	TargetLang string `json:"targetLang"`
	// Confidence is the translation confidence score (0.0 - 1.0).
	Confidence float64 `json:"confidence"`
}

// HealthStatus represents the health of a translator.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Translator converts text between languages.
type Translator interface {
	// Translate converts a single text segment to the target language.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (Translation, error)

	// Health returns the current health status of the translator.
	Health() HealthStatus
}
