package config

import (
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the environment variable prefix for all settings.
const EnvPrefix = "CHLOG"

// EnvConfig holds all environment-based configuration.
// Field names map to environment variables with the CHLOG_ prefix.
// Nested structs use underscore delimiter (e.g. CHLOG_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// LogLevel is the log verbosity level.
	// Env: CHLOG_LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: CHLOG_LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PromptsPath is the path of an external prompts YAML file.
	// Env: CHLOG_PROMPTS_PATH
	PromptsPath string `envconfig:"PROMPTS_PATH"`

	// HTTPCacheDir is the directory for caching HTTP responses to disk.
	// When set, POST request/response pairs are cached to avoid repeated
	// API calls when regenerating a changelog.
	// Env: CHLOG_HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`

	// MaxFailureRate is the fraction of commits allowed to fail enrichment
	// before a run is abandoned.
	// Env: CHLOG_MAX_FAILURE_RATE (default: 0)
	MaxFailureRate float64 `envconfig:"MAX_FAILURE_RATE" default:"0"`

	// Endpoint configures the model endpoint.
	Endpoint EndpointEnv `envconfig:"ENDPOINT"`
}

// EndpointEnv holds environment configuration for the model endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: CHLOG_ENDPOINT_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: CHLOG_ENDPOINT_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication. Falls back to
	// OPENAI_API_KEY when unset.
	// Env: CHLOG_ENDPOINT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// NumParallelTasks is the number of concurrent model calls.
	// Env: CHLOG_ENDPOINT_NUM_PARALLEL_TASKS (default: 10)
	NumParallelTasks int `envconfig:"NUM_PARALLEL_TASKS" default:"10"`

	// Timeout is the request timeout in seconds.
	// Env: CHLOG_ENDPOINT_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: CHLOG_ENDPOINT_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: CHLOG_ENDPOINT_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: CHLOG_ENDPOINT_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// MaxTokens is the maximum token limit.
	// Env: CHLOG_ENDPOINT_MAX_TOKENS (default: 4000)
	MaxTokens int `envconfig:"MAX_TOKENS" default:"4000"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize fills fields that have out-of-band fallbacks. The endpoint API
// key falls back to the conventional OPENAI_API_KEY variable.
func (e EnvConfig) Normalize() EnvConfig {
	if e.Endpoint.APIKey == "" {
		e.Endpoint.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return e
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	opts := []AppConfigOption{
		WithEndpoint(e.Endpoint.ToEndpoint()),
	}

	if e.LogLevel != "" {
		opts = append(opts, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		opts = append(opts, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.PromptsPath != "" {
		opts = append(opts, WithPromptsPath(e.PromptsPath))
	}
	if e.HTTPCacheDir != "" {
		opts = append(opts, WithHTTPCacheDir(e.HTTPCacheDir))
	}
	if e.MaxFailureRate > 0 {
		opts = append(opts, WithMaxFailureRate(e.MaxFailureRate))
	}

	return NewAppConfigWithOptions(opts...)
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithNumParallelTasks(e.NumParallelTasks),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(time.Duration(e.InitialDelay * float64(time.Second))),
		WithBackoffFactor(e.BackoffFactor),
		WithMaxTokens(e.MaxTokens),
	}

	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}

	return NewEndpointWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
