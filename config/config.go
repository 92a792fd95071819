// Package config loads engine configuration from an optional YAML file
// with environment-variable overrides. Nothing outside this package and
// main reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yb1734492970508/CultureBridge-Backend-sub001/engine"
)

// EngineSettings is the YAML shape of the scheduler/queue tuning.
// Intervals are plain milliseconds so the file stays arithmetic-free.
type EngineSettings struct {
	BatchSize              int     `yaml:"batchSize"`
	BatchIntervalMs        int     `yaml:"batchIntervalMs"`
	QueueCapacity          int     `yaml:"queueCapacity"`
	QualityThreshold       float64 `yaml:"qualityThreshold"`
	MaxRetries             int     `yaml:"maxRetries"`
	RetryBackoffMs         int     `yaml:"retryBackoffMs"`
	CallTimeoutMs          int     `yaml:"callTimeoutMs"`
	PipelineTTLSeconds     int     `yaml:"pipelineTtlSeconds"`
	StatsPersistIntervalMs int     `yaml:"statsPersistIntervalMs"`
}

// OpenAISettings configures the hosted provider adapters.
type OpenAISettings struct {
	APIKey       string `yaml:"apiKey"`
	BaseURL      string `yaml:"baseUrl"`
	WhisperModel string `yaml:"whisperModel"`
	ChatModel    string `yaml:"chatModel"`
	SpeechModel  string `yaml:"speechModel"`
	DefaultVoice string `yaml:"defaultVoice"`
}

// LibreSettings configures the self-hosted fallback translator.
type LibreSettings struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
}

// AudioSettings tunes input admission and preprocessing.
type AudioSettings struct {
	MaxBytes   int      `yaml:"maxBytes"`
	Formats    []string `yaml:"formats"`
	FFmpegPath string   `yaml:"ffmpegPath"`
	Denoise    bool     `yaml:"denoise"`
}

// StatsSettings configures observability extras.
type StatsSettings struct {
	PostgresURL string `yaml:"postgresUrl"`
	Prometheus  bool   `yaml:"prometheus"`
}

// Config is the full engine service configuration.
type Config struct {
	LogLevel  string         `yaml:"logLevel"`
	RedisAddr string         `yaml:"redisAddr"`
	Engine    EngineSettings `yaml:"engine"`
	Audio     AudioSettings  `yaml:"audio"`
	OpenAI    OpenAISettings `yaml:"openai"`
	Libre     LibreSettings  `yaml:"libre"`
	Stats     StatsSettings  `yaml:"stats"`
}

// Load reads the optional YAML file at path (empty means defaults only)
// and applies CBVOICE_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{LogLevel: "info"}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.LogLevel, "CBVOICE_LOG_LEVEL")
	setString(&cfg.RedisAddr, "CBVOICE_REDIS_ADDR")
	setString(&cfg.OpenAI.APIKey, "CBVOICE_OPENAI_API_KEY")
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	setString(&cfg.OpenAI.BaseURL, "CBVOICE_OPENAI_BASE_URL")
	setString(&cfg.Libre.URL, "CBVOICE_LIBRE_URL")
	setString(&cfg.Stats.PostgresURL, "CBVOICE_DATABASE_URL")
	setString(&cfg.Audio.FFmpegPath, "CBVOICE_FFMPEG_PATH")
	setInt(&cfg.Engine.BatchSize, "CBVOICE_BATCH_SIZE")
	setInt(&cfg.Engine.QueueCapacity, "CBVOICE_QUEUE_CAPACITY")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

// EngineConfig converts the YAML settings into the engine's config type.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		BatchSize:            c.Engine.BatchSize,
		BatchInterval:        time.Duration(c.Engine.BatchIntervalMs) * time.Millisecond,
		QueueCapacity:        c.Engine.QueueCapacity,
		QualityThreshold:     c.Engine.QualityThreshold,
		PipelineTTL:          time.Duration(c.Engine.PipelineTTLSeconds) * time.Second,
		StatsPersistInterval: time.Duration(c.Engine.StatsPersistIntervalMs) * time.Millisecond,
		Retry: engine.RetryPolicy{
			MaxRetries:     c.Engine.MaxRetries,
			InitialBackoff: time.Duration(c.Engine.RetryBackoffMs) * time.Millisecond,
			CallTimeout:    time.Duration(c.Engine.CallTimeoutMs) * time.Millisecond,
		},
	}
}
