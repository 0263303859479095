package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment" yaml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server" yaml:"server"`
	Logging     LoggingConfig    `toml:"logging" yaml:"logging"`
	Storage     StorageConfig    `toml:"storage" yaml:"storage"`
	Retrieval   RetrievalConfig  `toml:"retrieval" yaml:"retrieval"`
	LLM         LLMConfig        `toml:"llm" yaml:"llm"`
	Query       QueryConfig      `toml:"query" yaml:"query"`
	RateLimit   RateLimitConfig  `toml:"ratelimit" yaml:"ratelimit"`
	Preprocess  PreprocessConfig `toml:"preprocess" yaml:"preprocess"`
	Slack       SlackConfig      `toml:"slack" yaml:"slack"`
	Status      StatusConfig     `toml:"status" yaml:"status"`
	Audit       AuditConfig      `toml:"audit" yaml:"audit"`
}

type ServerConfig struct {
	Port int    `toml:"port" yaml:"port"`
	Host string `toml:"host" yaml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level"`             // "debug", "info", "warn", "error"
	Output     []string `toml:"output" yaml:"output"`           // "stdout", "file"
	TimeFormat string   `toml:"time_format" yaml:"time_format"` // Time format for logs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for the audit store
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"`
}

// RetrievalConfig configures the external chunk-retrieval service client.
// CorpusID is accepted as either a bare numeric identifier or a fully
// qualified resource path; the client tries both forms.
type RetrievalConfig struct {
	Endpoint           string  `toml:"endpoint" yaml:"endpoint"`
	APIKey             string  `toml:"api_key" yaml:"api_key"`
	CorpusID           string  `toml:"corpus_id" yaml:"corpus_id"`
	MaxResults         int     `toml:"max_results" yaml:"max_results"`
	DistanceThreshold  float64 `toml:"distance_threshold" yaml:"distance_threshold"`
	ScoreKind          string  `toml:"score_kind" yaml:"score_kind"` // "distance" or "similarity"
	Timeout            string  `toml:"timeout" yaml:"timeout"`
	RetryBackoff       string  `toml:"retry_backoff" yaml:"retry_backoff"`
	RateLimitPerSecond int     `toml:"rate_limit_per_second" yaml:"rate_limit_per_second"`
}

// LLMConfig configures the external generation service.
type LLMConfig struct {
	Provider        string  `toml:"provider" yaml:"provider"` // "gemini" or "claude"
	Model           string  `toml:"model" yaml:"model"`
	GoogleAPIKey    string  `toml:"google_api_key" yaml:"google_api_key"`
	AnthropicAPIKey string  `toml:"anthropic_api_key" yaml:"anthropic_api_key"`
	Temperature     float32 `toml:"temperature" yaml:"temperature"`
	MaxTokens       int     `toml:"max_tokens" yaml:"max_tokens"`
	MaxContextChars int     `toml:"max_context_chars" yaml:"max_context_chars"`
	Timeout         string  `toml:"timeout" yaml:"timeout"`
}

// QueryConfig configures orchestrator behavior.
type QueryConfig struct {
	DegradedConfidenceScale float64 `toml:"degraded_confidence_scale" yaml:"degraded_confidence_scale"`
	DegradedTopN            int     `toml:"degraded_top_n" yaml:"degraded_top_n"`
}

type RateLimitConfig struct {
	MaxPerWindow int    `toml:"max_per_window" yaml:"max_per_window"`
	Window       string `toml:"window" yaml:"window"` // e.g. "60s"
}

type PreprocessConfig struct {
	MaxQueryLength int `toml:"max_query_length" yaml:"max_query_length"`
}

type SlackConfig struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	BotToken       string `toml:"bot_token" yaml:"bot_token"`
	AppToken       string `toml:"app_token" yaml:"app_token"`
	BotName        string `toml:"bot_name" yaml:"bot_name"`
	MinQueryLength int    `toml:"min_query_length" yaml:"min_query_length"`
}

// StatusConfig configures the dependency status refresher.
type StatusConfig struct {
	RefreshSchedule string `toml:"refresh_schedule" yaml:"refresh_schedule"` // cron format
	ProbeTimeout    string `toml:"probe_timeout" yaml:"probe_timeout"`
}

type AuditConfig struct {
	Enabled    bool `toml:"enabled" yaml:"enabled"`
	LogQueries bool `toml:"log_queries" yaml:"log_queries"`
}

// NewDefaultConfig returns a Config populated with defaults. File, env, and
// CLI values layer on top.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/askdoc",
			},
		},
		Retrieval: RetrievalConfig{
			MaxResults:         7,
			DistanceThreshold:  0.8,
			ScoreKind:          "distance",
			Timeout:            "15s",
			RetryBackoff:       "500ms",
			RateLimitPerSecond: 5,
		},
		LLM: LLMConfig{
			Provider:        "gemini",
			Temperature:     0.1,
			MaxTokens:       2048,
			MaxContextChars: 100000,
			Timeout:         "30s",
		},
		Query: QueryConfig{
			DegradedConfidenceScale: 0.5,
			DegradedTopN:            3,
		},
		RateLimit: RateLimitConfig{
			MaxPerWindow: 10,
			Window:       "60s",
		},
		Preprocess: PreprocessConfig{
			MaxQueryLength: 5000,
		},
		Slack: SlackConfig{
			BotName:        "AskDoc",
			MinQueryLength: 3,
		},
		Status: StatusConfig{
			RefreshSchedule: "*/5 * * * *",
			ProbeTimeout:    "5s",
		},
		Audit: AuditConfig{
			Enabled: true,
		},
	}
}

// LoadFromFiles loads configuration from one or more files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// ones. Files ending in .yaml/.yml are parsed as YAML, everything else as
// TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			err = yaml.Unmarshal(data, config)
		} else {
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ASKDOC_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("ASKDOC_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ASKDOC_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("ASKDOC_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if endpoint := os.Getenv("ASKDOC_RETRIEVAL_ENDPOINT"); endpoint != "" {
		config.Retrieval.Endpoint = endpoint
	}
	if key := os.Getenv("ASKDOC_RETRIEVAL_API_KEY"); key != "" {
		config.Retrieval.APIKey = key
	}
	if corpus := os.Getenv("ASKDOC_RETRIEVAL_CORPUS_ID"); corpus != "" {
		config.Retrieval.CorpusID = corpus
	}
	if maxResults := os.Getenv("ASKDOC_RETRIEVAL_MAX_RESULTS"); maxResults != "" {
		if n, err := strconv.Atoi(maxResults); err == nil {
			config.Retrieval.MaxResults = n
		}
	}
	if threshold := os.Getenv("ASKDOC_RETRIEVAL_DISTANCE_THRESHOLD"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Retrieval.DistanceThreshold = f
		}
	}

	if provider := os.Getenv("ASKDOC_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if model := os.Getenv("ASKDOC_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if key := os.Getenv("ASKDOC_LLM_GOOGLE_API_KEY"); key != "" {
		config.LLM.GoogleAPIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.LLM.GoogleAPIKey = key
	}
	if key := os.Getenv("ASKDOC_LLM_ANTHROPIC_API_KEY"); key != "" {
		config.LLM.AnthropicAPIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.LLM.AnthropicAPIKey = key
	}

	if maxPerWindow := os.Getenv("ASKDOC_RATELIMIT_MAX_PER_WINDOW"); maxPerWindow != "" {
		if n, err := strconv.Atoi(maxPerWindow); err == nil {
			config.RateLimit.MaxPerWindow = n
		}
	}
	if window := os.Getenv("ASKDOC_RATELIMIT_WINDOW"); window != "" {
		config.RateLimit.Window = window
	}

	if token := os.Getenv("ASKDOC_SLACK_BOT_TOKEN"); token != "" {
		config.Slack.BotToken = token
		config.Slack.Enabled = true
	}
	if token := os.Getenv("ASKDOC_SLACK_APP_TOKEN"); token != "" {
		config.Slack.AppToken = token
	}
}

// validateConfig checks cross-field constraints that unmarshalling cannot
func validateConfig(config *Config) error {
	if config.RateLimit.MaxPerWindow <= 0 {
		return fmt.Errorf("ratelimit.max_per_window must be greater than 0, got %d", config.RateLimit.MaxPerWindow)
	}
	if _, err := time.ParseDuration(config.RateLimit.Window); err != nil {
		return fmt.Errorf("invalid ratelimit.window %q: %w", config.RateLimit.Window, err)
	}
	if _, err := time.ParseDuration(config.Retrieval.Timeout); err != nil {
		return fmt.Errorf("invalid retrieval.timeout %q: %w", config.Retrieval.Timeout, err)
	}
	if _, err := time.ParseDuration(config.Retrieval.RetryBackoff); err != nil {
		return fmt.Errorf("invalid retrieval.retry_backoff %q: %w", config.Retrieval.RetryBackoff, err)
	}
	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm.timeout %q: %w", config.LLM.Timeout, err)
	}
	if config.Retrieval.ScoreKind != "distance" && config.Retrieval.ScoreKind != "similarity" {
		return fmt.Errorf("retrieval.score_kind must be 'distance' or 'similarity', got %q", config.Retrieval.ScoreKind)
	}
	if config.Preprocess.MaxQueryLength <= 0 {
		return fmt.Errorf("preprocess.max_query_length must be greater than 0, got %d", config.Preprocess.MaxQueryLength)
	}
	if config.Slack.Enabled {
		if config.Slack.BotToken == "" {
			return fmt.Errorf("slack.bot_token is required when slack.enabled is true")
		}
		if config.Slack.AppToken == "" {
			return fmt.Errorf("slack.app_token is required for Socket Mode when slack.enabled is true")
		}
	}
	return nil
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
