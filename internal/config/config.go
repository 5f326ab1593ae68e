package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Parser   ParserConfig   `yaml:"parser"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Audience AudienceConfig `yaml:"audience"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// LogConfig holds structured logger settings
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedactPII reports whether PII redaction is on (default true).
func (c LogConfig) ShouldRedactPII() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Parser providers
const (
	ProviderRules   = "rules"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// ParserConfig holds the natural-language audience parser settings
type ParserConfig struct {
	Provider        string  `yaml:"provider"` // rules, bedrock, gemini, openai
	Model           string  `yaml:"model"`
	Region          string  `yaml:"region"` // bedrock only
	APIKey          string  `yaml:"api_key"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	Temperature     float64 `yaml:"temperature"`
	FallbackToRules *bool   `yaml:"fallback_to_rules"`
}

// Timeout returns the configured timeout as a duration
func (c ParserConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShouldFallBack reports whether AI failures fall back to the rules parser (default true).
func (c ParserConfig) ShouldFallBack() bool {
	return c.FallbackToRules == nil || *c.FallbackToRules
}

// DefaultModel returns the provider's default model ID.
func (c ParserConfig) DefaultModel() string {
	switch c.Provider {
	case ProviderBedrock:
		return "anthropic.claude-3-haiku-20240307-v1:0"
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	}
	return ""
}

// CacheConfig holds the Redis parse cache settings
type CacheConfig struct {
	RedisURL   string `yaml:"redis_url"` // empty disables caching
	TTLMinutes int    `yaml:"ttl_minutes"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// TTL returns the cache TTL as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// DatabaseConfig holds the saved-audience PostgreSQL settings
type DatabaseConfig struct {
	URL          string `yaml:"url"` // empty disables saved-audience routes
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// AudienceConfig holds saved-audience service settings
type AudienceConfig struct {
	RefreshConcurrency int `yaml:"refresh_concurrency"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Parser.Provider == "" {
		cfg.Parser.Provider = ProviderRules
	}
	cfg.Parser.Provider = strings.ToLower(cfg.Parser.Provider)
	if cfg.Parser.Model == "" {
		cfg.Parser.Model = cfg.Parser.DefaultModel()
	}
	if cfg.Parser.Region == "" {
		cfg.Parser.Region = "us-east-1"
	}
	if cfg.Parser.TimeoutSeconds == 0 {
		cfg.Parser.TimeoutSeconds = 30
	}
	if cfg.Parser.Temperature == 0 {
		cfg.Parser.Temperature = 0.2
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 60
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "audience:parse:"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 3
	}
	if cfg.Audience.RefreshConcurrency == 0 {
		cfg.Audience.RefreshConcurrency = 4
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
// A missing config file is not an error; defaults and env vars apply.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Parser overrides; a provider change resets a defaulted model
	if v := os.Getenv("PARSER_PROVIDER"); v != "" && !strings.EqualFold(v, cfg.Parser.Provider) {
		if cfg.Parser.Model == cfg.Parser.DefaultModel() {
			cfg.Parser.Model = ""
		}
		cfg.Parser.Provider = strings.ToLower(v)
		if cfg.Parser.Model == "" {
			cfg.Parser.Model = cfg.Parser.DefaultModel()
		}
	}
	if v := os.Getenv("PARSER_MODEL"); v != "" {
		cfg.Parser.Model = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Parser.Region = v
	}
	switch cfg.Parser.Provider {
	case ProviderGemini:
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			cfg.Parser.APIKey = v
		}
	case ProviderOpenAI:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.Parser.APIKey = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}

	// Database override (critical for container deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}

	return cfg, nil
}
