package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Hosted inference
	HFKey     string `env:"HF_API_KEY"`
	HFBaseURL string `env:"HF_BASE_URL" envDefault:"https://api-inference.huggingface.co/models/"`

	// Model lists, comma separated, primary first. Empty keeps the built-in defaults.
	ExtractiveModels []string `env:"EXTRACTIVE_MODELS" envSeparator:","`
	SummarizeModels  []string `env:"SUMMARIZE_MODELS" envSeparator:","`
	ParaphraseModels []string `env:"PARAPHRASE_MODELS" envSeparator:","`

	// Alternate paraphrase provider (OpenAI-compatible)
	GroqKey     string `env:"GROQ_API_KEY"`
	GroqBaseURL string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1/"`
	GroqModel   string `env:"GROQ_MODEL" envDefault:"llama-3.1-8b-instant"`

	// Resilience
	RetryMax          int           `env:"RETRY_MAX" envDefault:"3"`
	RetryBase         time.Duration `env:"RETRY_BASE" envDefault:"500ms"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"8s"`
	ReadyMaxWait      time.Duration `env:"READY_MAX_WAIT" envDefault:"180s"`
	ReadyPollInterval time.Duration `env:"READY_POLL_INTERVAL" envDefault:"10s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"45s"`
	ExtractiveTimeout time.Duration `env:"EXTRACTIVE_TIMEOUT" envDefault:"60s"`

	// Queue
	QueueURL        string `env:"QUEUE_URL"`
	TaskMaxAttempts int    `env:"TASK_MAX_ATTEMPTS" envDefault:"3"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
