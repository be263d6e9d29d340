package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates all service configuration.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Engine   EngineConfig
	Pipeline PipelineConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	engine, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Engine: engine, Pipeline: pipeline}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// allow ":8080" or "127.0.0.1:8080" directly
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat model used for note synthesis.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// EngineConfig describes the recognition sidecars. Either URL may be empty,
// in which case that engine is disabled and the pipeline degrades gracefully.
type EngineConfig struct {
	FaceURL   string
	SpeechURL string
	Timeout   time.Duration
}

// FaceEnabled reports whether a face engine sidecar is configured.
func (c EngineConfig) FaceEnabled() bool { return c.FaceURL != "" }

// SpeechEnabled reports whether a speech engine sidecar is configured.
func (c EngineConfig) SpeechEnabled() bool { return c.SpeechURL != "" }

func loadEngineConfig() (EngineConfig, error) {
	timeout, err := parseOptionalIntEnv("ENGINE_TIMEOUT")
	if err != nil {
		return EngineConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return EngineConfig{
		FaceURL:   strings.TrimSpace(os.Getenv("FACE_ENGINE_URL")),
		SpeechURL: strings.TrimSpace(os.Getenv("SPEECH_ENGINE_URL")),
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// PipelineConfig describes matching thresholds and worker sizing.
type PipelineConfig struct {
	FaceMatchThreshold  float64
	VoiceMatchThreshold float64
	DedupThreshold      float64
	Workers             int
	QueueDepth          int
	IdleTimeout         time.Duration
	SweepInterval       time.Duration
}

func loadPipelineConfig() (PipelineConfig, error) {
	cfg := PipelineConfig{
		FaceMatchThreshold:  0.6,
		VoiceMatchThreshold: 0.7,
		DedupThreshold:      0.95,
		Workers:             4,
		QueueDepth:          32,
		IdleTimeout:         2 * time.Minute,
		SweepInterval:       30 * time.Second,
	}

	if v, err := parseOptionalFloatEnv("FACE_MATCH_THRESHOLD"); err != nil {
		return PipelineConfig{}, err
	} else if v != nil {
		cfg.FaceMatchThreshold = *v
	}

	if v, err := parseOptionalFloatEnv("VOICE_MATCH_THRESHOLD"); err != nil {
		return PipelineConfig{}, err
	} else if v != nil {
		cfg.VoiceMatchThreshold = *v
	}

	if v, err := parseOptionalFloatEnv("SIGNATURE_DEDUP_THRESHOLD"); err != nil {
		return PipelineConfig{}, err
	} else if v != nil {
		cfg.DedupThreshold = *v
	}

	if v, err := parseOptionalIntEnv("PIPELINE_WORKERS"); err != nil {
		return PipelineConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.Workers = *v
	}

	if v, err := parseOptionalIntEnv("PIPELINE_QUEUE_DEPTH"); err != nil {
		return PipelineConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.QueueDepth = *v
	}

	if v, err := parseOptionalIntEnv("SESSION_IDLE_TIMEOUT"); err != nil {
		return PipelineConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.IdleTimeout = time.Duration(*v) * time.Second
	}

	if v, err := parseOptionalIntEnv("SESSION_SWEEP_INTERVAL"); err != nil {
		return PipelineConfig{}, err
	} else if v != nil && *v > 0 {
		cfg.SweepInterval = time.Duration(*v) * time.Second
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
