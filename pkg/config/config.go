// Package config loads the recognized configuration options (spec ambient
// stack: .env for development secrets via godotenv, a YAML file for
// structured defaults), the way the teacher's cmd/api/main.go loads
// config/models.yaml.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config binds every option enumerated in the external interfaces section.
type Config struct {
	DBURL        string `yaml:"db_url"`
	DBPoolSize   int    `yaml:"db_pool_size"`
	DBTimeoutS   int    `yaml:"db_timeout_s"`

	LLMProvider    string  `yaml:"llm_provider"`
	LLMAPIKey      string  `yaml:"llm_api_key"`
	LLMModel       string  `yaml:"llm_model"`
	LLMTemperature float64 `yaml:"llm_temperature"`
	LLMMaxTokens   int     `yaml:"llm_max_tokens"`
	LLMTimeoutS    int     `yaml:"llm_timeout_s"`

	IngestWorkers       int `yaml:"ingest_workers"`
	IngestRetryMax      int `yaml:"ingest_retry_max"`
	IngestBackoffBaseMs int `yaml:"ingest_backoff_base_ms"`

	ConversationTTLS        int `yaml:"conversation_ttl_s"`
	ConversationMaxMessages int `yaml:"conversation_max_messages"`

	InsightCacheTTLS int `yaml:"insight_cache_ttl_s"`

	// SourcePriority resolves conflicts between two records for the same
	// (period, currency) key: the higher-priority source's scalars win.
	SourcePriority map[string]int `yaml:"source_priority"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the documented defaults for every option above.
func Default() *Config {
	return &Config{
		DBPoolSize: 20,
		DBTimeoutS: 5,

		LLMProvider:    "ProviderX",
		LLMTemperature: 0.1,
		LLMMaxTokens:   2048,
		LLMTimeoutS:    30,

		IngestWorkers:       4,
		IngestRetryMax:      5,
		IngestBackoffBaseMs: 100,

		ConversationTTLS:        3600,
		ConversationMaxMessages: 50,

		InsightCacheTTLS: 3600,

		SourcePriority: map[string]int{
			"DialectA": 2,
			"DialectB": 1,
		},

		LogLevel: "info",
	}
}

// Load reads a .env file (if present, for local secrets) and then overlays
// a YAML config file (if present) onto the defaults. Neither file is
// required; missing files are not an error, following the teacher's
// best-effort godotenv.Load() call.
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DBURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}

	return cfg, nil
}

func (c *Config) DBTimeout() time.Duration   { return time.Duration(c.DBTimeoutS) * time.Second }
func (c *Config) LLMTimeout() time.Duration  { return time.Duration(c.LLMTimeoutS) * time.Second }
func (c *Config) ConversationTTL() time.Duration {
	return time.Duration(c.ConversationTTLS) * time.Second
}
func (c *Config) InsightCacheTTL() time.Duration {
	return time.Duration(c.InsightCacheTTLS) * time.Second
}
func (c *Config) IngestBackoffBase() time.Duration {
	return time.Duration(c.IngestBackoffBaseMs) * time.Millisecond
}
