package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAISynthesizerConfig configures the speech-API synthesizer.
type OpenAISynthesizerConfig struct {
	// APIKey authenticates against the provider.
	APIKey string
	// BaseURL overrides the API endpoint for compatible gateways.
	BaseURL string
	// Model is the speech model. Empty means tts-1.
	Model string
	// DefaultVoice is used when the request carries no voice. Empty means alloy.
	DefaultVoice string
}

// OpenAISynthesizer generates speech through the OpenAI speech API.
type OpenAISynthesizer struct {
	client       *openai.Client
	model        string
	defaultVoice string
	logger       *zap.SugaredLogger
}

// NewOpenAISynthesizer creates a synthesizer with the given config.
func NewOpenAISynthesizer(config OpenAISynthesizerConfig, logger *zap.SugaredLogger) *OpenAISynthesizer {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	defaultVoice := config.DefaultVoice
	if defaultVoice == "" {
		defaultVoice = string(openai.VoiceAlloy)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &OpenAISynthesizer{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        model,
		defaultVoice: defaultVoice,
		logger:       logger,
	}
}

// Synthesize requests MP3 speech for the text. Pitch is not supported by
// the provider and ignored; rate maps to the request speed.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, targetLang string, voice VoiceOptions) (Audio, error) {
	voiceID := voice.Voice
	if voiceID == "" {
		voiceID = s.defaultVoice
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}
	if voice.SpeakingRate > 0 {
		req.Speed = voice.SpeakingRate
	}

	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, req)
	if err != nil {
		return Audio{}, fmt.Errorf("openai speech: %w", err)
	}
	defer func() { _ = resp.Close() }()

	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("openai speech read: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("openai speech: empty audio")
	}

	s.logger.Debugw("synthesis complete",
		"model", s.model,
		"voice", voiceID,
		"targetLang", targetLang,
		"bytes", len(data),
		"durationMs", time.Since(start).Milliseconds(),
	)

	return Audio{Data: data, Encoding: "mp3"}, nil
}

// Health reports whether the synthesizer is configured.
func (s *OpenAISynthesizer) Health() HealthStatus {
	if s.client == nil {
		return HealthStatus{Healthy: false, Message: "openai client not configured"}
	}
	return HealthStatus{Healthy: true, Message: "openai synthesizer ready"}
}
