package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAITranslatorConfig configures the chat-completion translator.
type OpenAITranslatorConfig struct {
	// APIKey authenticates against the provider.
	APIKey string
	// BaseURL overrides the API endpoint for compatible gateways.
	BaseURL string
	// Model is the chat model used for translation. Empty means gpt-4o-mini.
	Model string
	// Temperature for the completion. Translation wants it low.
	Temperature float32
}

// OpenAITranslator translates text through a chat completion with a fixed
// system prompt.
type OpenAITranslator struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.SugaredLogger
}

// NewOpenAITranslator creates a translator with the given config.
func NewOpenAITranslator(config OpenAITranslatorConfig, logger *zap.SugaredLogger) *OpenAITranslator {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &OpenAITranslator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: config.Temperature,
		logger:      logger,
	}
}

// Translate sends the text with a translation instruction and returns the
// model output verbatim.
func (t *OpenAITranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (Translation, error) {
	system := fmt.Sprintf(
		"You are a translation engine. Translate the user's text from %s to %s. Reply with the translation only, no quotes, no commentary.",
		languageName(sourceLang), languageName(targetLang),
	)

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: t.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return Translation{}, fmt.Errorf("openai translation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Translation{}, fmt.Errorf("openai translation: empty response")
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	t.logger.Debugw("translation complete",
		"model", t.model,
		"sourceLang", sourceLang,
		"targetLang", targetLang,
		"durationMs", time.Since(start).Milliseconds(),
	)

	return Translation{
		SourceText:     text,
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Confidence:     0.9,
	}, nil
}

// Health reports whether the translator is configured.
func (t *OpenAITranslator) Health() HealthStatus {
	if t.client == nil {
		return HealthStatus{Healthy: false, Message: "openai client not configured"}
	}
	return HealthStatus{Healthy: true, Message: "openai translator ready"}
}

func languageName(code string) string {
	for _, lang := range supportedLanguages {
		if lang.Code == code {
			return lang.DisplayName + " (" + code + ")"
		}
	}
	return code
}
