package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultLibreURL is the default base URL for a LibreTranslate server.
	DefaultLibreURL = "http://localhost:5000"
	// DefaultLibreTimeout bounds a single HTTP request.
	DefaultLibreTimeout = 30 * time.Second
)

// LibreTranslator implements Translator against a self-hosted
// LibreTranslate instance, usually configured as the fallback provider.
type LibreTranslator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewLibreTranslator creates a client for the given base URL.
func NewLibreTranslator(baseURL, apiKey string, logger *zap.SugaredLogger) *LibreTranslator {
	if baseURL == "" {
		baseURL = DefaultLibreURL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LibreTranslator{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultLibreTimeout},
		logger:     logger,
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Translate posts to /translate and returns the result.
func (t *LibreTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (Translation, error) {
	payload, err := json.Marshal(libreRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: t.apiKey,
	})
	if err != nil {
		return Translation{}, fmt.Errorf("libretranslate marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return Translation{}, fmt.Errorf("libretranslate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Translation{}, fmt.Errorf("libretranslate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Translation{}, fmt.Errorf("libretranslate read: %w", err)
	}

	var decoded libreResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Translation{}, fmt.Errorf("libretranslate decode (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error
		if msg == "" {
			msg = string(body)
		}
		return Translation{}, fmt.Errorf("libretranslate status %d: %s", resp.StatusCode, msg)
	}

	return Translation{
		SourceText:     text,
		TranslatedText: decoded.TranslatedText,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Confidence:     0.8,
	}, nil
}

// Health probes the server's languages endpoint.
func (t *LibreTranslator) Health() HealthStatus {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/languages", nil)
	if err != nil {
		return HealthStatus{Healthy: false, Message: err.Error()}
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return HealthStatus{Healthy: false, Message: "libretranslate unreachable: " + err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return HealthStatus{Healthy: false, Message: fmt.Sprintf("libretranslate status %d", resp.StatusCode)}
	}
	return HealthStatus{Healthy: true, Message: "libretranslate ready"}
}
