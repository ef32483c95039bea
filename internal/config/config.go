// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8000"`

	// Session store selection. When DBURL is set the Postgres store is used;
	// otherwise RedisURL selects the Redis store; otherwise sessions live in
	// process memory and are lost on restart.
	DBURL    string `env:"DB_URL"`
	RedisURL string `env:"REDIS_URL"`

	// LLM provider selection. UseLocalLLM picks the Ollama client; otherwise
	// an OpenAI-compatible endpoint is used.
	UseLocalLLM   bool          `env:"USE_LOCAL_LLM" envDefault:"true"`
	OllamaBaseURL string        `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel   string        `env:"OLLAMA_MODEL" envDefault:"gemma3:1b"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	// HistoryMaxTokens bounds the conversation context sent to the model;
	// oldest turns are dropped first.
	HistoryMaxTokens int `env:"HISTORY_MAX_TOKENS" envDefault:"3000"`

	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173"`
	RateLimitPerMin  int    `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ai-excel-interviewer"`

	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// Write timeout must exceed the LLM timeout or slow turns get cut off
	// mid-response.
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// LLMModel returns the model name for the selected provider.
func (c Config) LLMModel() string {
	if c.UseLocalLLM {
		return c.OllamaModel
	}
	return c.OpenAIModel
}
