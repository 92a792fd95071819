package asr

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/audio"
)

// OpenAIRecognizerConfig configures the Whisper-backed recognizer.
type OpenAIRecognizerConfig struct {
	// APIKey authenticates against the provider.
	APIKey string
	// BaseURL overrides the API endpoint for compatible gateways (Groq,
	// local whisper servers). Empty uses the OpenAI default.
	BaseURL string
	// Model is the transcription model. Empty means whisper-1.
	Model string
}

// OpenAIRecognizer transcribes audio through the OpenAI audio API.
type OpenAIRecognizer struct {
	client *openai.Client
	model  string
	logger *zap.SugaredLogger
}

// NewOpenAIRecognizer creates a recognizer with the given config.
func NewOpenAIRecognizer(config OpenAIRecognizerConfig, logger *zap.SugaredLogger) *OpenAIRecognizer {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.Whisper1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &OpenAIRecognizer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}
}

// Recognize uploads the audio as WAV and maps the verbose response into a
// transcript with segment-level timings.
func (r *OpenAIRecognizer) Recognize(ctx context.Context, a audio.NormalizedAudio, languageHint string) (Transcript, error) {
	req := openai.AudioRequest{
		Model:    r.model,
		Reader:   bytes.NewReader(a.WAV()),
		FilePath: "audio.wav",
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if languageHint != "" && languageHint != "auto" {
		req.Language = languageHint
	}

	start := time.Now()
	resp, err := r.client.CreateTranscription(ctx, req)
	if err != nil {
		return Transcript{}, fmt.Errorf("openai transcription: %w", err)
	}
	r.logger.Debugw("transcription complete",
		"model", r.model,
		"durationMs", time.Since(start).Milliseconds(),
		"chars", len(resp.Text),
	)

	transcript := Transcript{
		Text:       resp.Text,
		Language:   resp.Language,
		Confidence: 1,
	}

	// Whisper reports per-segment log probabilities rather than a single
	// confidence value; fold them into one score.
	if len(resp.Segments) > 0 {
		var sum float64
		words := make([]Word, 0, len(resp.Segments))
		for _, seg := range resp.Segments {
			sum += math.Exp(seg.AvgLogprob)
			words = append(words, Word{
				Text:      seg.Text,
				StartTime: time.Duration(seg.Start * float64(time.Second)),
				EndTime:   time.Duration(seg.End * float64(time.Second)),
			})
		}
		confidence := sum / float64(len(resp.Segments))
		if confidence > 1 {
			confidence = 1
		}
		transcript.Confidence = confidence
		transcript.Words = words
	}

	return transcript, nil
}

// Health reports whether the recognizer is configured with credentials.
func (r *OpenAIRecognizer) Health() HealthStatus {
	if r.client == nil {
		return HealthStatus{Healthy: false, Message: "openai client not configured"}
	}
	return HealthStatus{Healthy: true, Message: "openai recognizer ready"}
}
