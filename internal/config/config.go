package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Provider and driver names accepted by the configuration
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderElevenLabs = "elevenlabs"

	StoreNone   = "none"
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Config holds all configuration for the interview gateway service
type Config struct {
	// Server configuration
	Port           string `envconfig:"PORT" default:"8080"`
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:""` // gRPC health service; disabled when empty

	// Reasoning service
	ReasoningProvider   string  `envconfig:"REASONING_PROVIDER" default:"openai"` // openai, anthropic
	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL" default:""`
	OpenAIModel         string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	AnthropicAPIKey     string  `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL    string  `envconfig:"ANTHROPIC_BASE_URL" default:""`
	AnthropicModel      string  `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest"`
	FeedbackMaxTokens   int     `envconfig:"FEEDBACK_MAX_TOKENS" default:"150"`
	FeedbackTemperature float32 `envconfig:"FEEDBACK_TEMPERATURE" default:"0.5"`
	EvaluationMaxTokens int     `envconfig:"EVALUATION_MAX_TOKENS" default:"600"`
	ReasoningTimeout    int     `envconfig:"REASONING_TIMEOUT" default:"30"` // seconds

	// Speech service
	SpeechProvider    string   `envconfig:"SPEECH_PROVIDER" default:"openai"` // openai, elevenlabs
	OpenAITTSModel    string   `envconfig:"OPENAI_TTS_MODEL" default:"tts-1"`
	OpenAITTSVoice    string   `envconfig:"OPENAI_TTS_VOICE" default:"alloy"`
	ElevenLabsAPIKey  string   `envconfig:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string   `envconfig:"ELEVENLABS_VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM"`
	ElevenLabsModelID string   `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_turbo_v2_5"`
	ElevenLabsBaseURL string   `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`
	SpeechTimeout     int      `envconfig:"SPEECH_TIMEOUT" default:"60"` // seconds, whole stream
	AudioChunkSize    int      `envconfig:"AUDIO_CHUNK_SIZE" default:"1024"`
	AudioContentTypes []string `envconfig:"AUDIO_CONTENT_TYPES" default:"audio/mpeg,audio/mp3,audio/wav,audio/x-wav,audio/ogg,audio/opus,audio/aac,audio/flac,audio/webm,audio/pcm"`

	// Session behaviour
	SummaryMaxChars       int    `envconfig:"SUMMARY_MAX_CHARS" default:"0"` // 0 = unbounded
	RequireThinkingStatus bool   `envconfig:"REQUIRE_THINKING_STATUS" default:"false"`
	ThinkingStatus        string `envconfig:"THINKING_STATUS" default:"Thinking"`
	SessionIdleTTL        int    `envconfig:"SESSION_IDLE_TTL" default:"0"` // minutes, 0 = keep forever

	// Document store
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"none"` // none, mongo, sqlite
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"interview"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"interview.db"`

	// Identity headers written by the upstream token verifier
	IdentitySubjectHeader string `envconfig:"IDENTITY_SUBJECT_HEADER" default:"X-User-Id"`
	IdentityEmailHeader   string `envconfig:"IDENTITY_EMAIL_HEADER" default:"X-User-Email"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`         // Document store connect attempts
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`           // Milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks provider selection and the credentials each provider needs
func (c *Config) Validate() error {
	switch c.ReasoningProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown REASONING_PROVIDER %q", c.ReasoningProvider)
	}

	switch c.SpeechProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai speech")
		}
	case ProviderElevenLabs:
		if c.ElevenLabsAPIKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown SPEECH_PROVIDER %q", c.SpeechProvider)
	}

	switch c.StoreDriver {
	case StoreNone, StoreSQLite:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.AudioChunkSize <= 0 {
		return fmt.Errorf("AUDIO_CHUNK_SIZE must be positive, got %d", c.AudioChunkSize)
	}

	for i, ct := range c.AudioContentTypes {
		c.AudioContentTypes[i] = strings.ToLower(strings.TrimSpace(ct))
	}

	return nil
}

// ReasoningTimeoutDuration is the bounded wait applied to each reasoning call
func (c *Config) ReasoningTimeoutDuration() time.Duration {
	return time.Duration(c.ReasoningTimeout) * time.Second
}

// SpeechTimeoutDuration bounds a whole audio stream
func (c *Config) SpeechTimeoutDuration() time.Duration {
	return time.Duration(c.SpeechTimeout) * time.Second
}

// SessionIdleTTLDuration returns zero when idle sweeping is disabled
func (c *Config) SessionIdleTTLDuration() time.Duration {
	return time.Duration(c.SessionIdleTTL) * time.Minute
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
