// Package config loads the service configuration from an optional YAML
// file with environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Zero values fall back to the
// defaults in Default.
type Config struct {
	Audit   AuditConfig   `yaml:"audit"`
	Search  SearchConfig  `yaml:"search"`
	LLM     LLMConfig     `yaml:"llm"`
	Retry   RetryConfig   `yaml:"retry"`
	Quota   QuotaConfig   `yaml:"quota"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type AuditConfig struct {
	NumQuestions      int `yaml:"num_questions"`
	MaxSearchResults  int `yaml:"max_search_results"`
	SearchConcurrency int `yaml:"search_concurrency"`
}

type SearchConfig struct {
	// TavilyAPIKey comes from TAVILY_API_KEY; the file field exists for
	// local development only.
	TavilyAPIKey string `yaml:"tavily_api_key"`
}

type LLMConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GoogleAPIKey string `yaml:"google_api_key"`

	ContextModel    string `yaml:"context_model"`
	QuestionModel   string `yaml:"question_model"`
	SimulationModel string `yaml:"simulation_model"`
	AnalysisModel   string `yaml:"analysis_model"`

	ContextTemperature    float64 `yaml:"context_temperature"`
	QuestionTemperature   float64 `yaml:"question_temperature"`
	SimulationTemperature float64 `yaml:"simulation_temperature"`
	AnalysisTemperature   float64 `yaml:"analysis_temperature"`

	// RateLimitRPS paces outgoing completion calls per client.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Multiplier time.Duration `yaml:"multiplier"`
	MinWait    time.Duration `yaml:"min_wait"`
	MaxWait    time.Duration `yaml:"max_wait"`
}

type QuotaConfig struct {
	// SQLitePath and PostgresDSN are mutually exclusive; Postgres wins
	// when both are set. Neither set disables metering.
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// MaxAudits is the per-access-code budget.
	MaxAudits int `yaml:"max_audits"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Audit: AuditConfig{
			NumQuestions:      2,
			MaxSearchResults:  5,
			SearchConcurrency: 1,
		},
		LLM: LLMConfig{
			ContextModel:          "openai:gpt-4o-mini",
			QuestionModel:         "openai:gpt-4o-mini",
			SimulationModel:       "openai:gpt-4",
			AnalysisModel:         "openai:gpt-4",
			ContextTemperature:    0.3,
			QuestionTemperature:   0.7,
			SimulationTemperature: 0.7,
			AnalysisTemperature:   0.3,
		},
		Retry: RetryConfig{
			Attempts:   3,
			Multiplier: time.Second,
			MinWait:    2 * time.Second,
			MaxWait:    10 * time.Second,
		},
		Quota: QuotaConfig{
			MaxAudits: 3,
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty) over the
// defaults, then applies environment overrides for credentials.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.Search.TavilyAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.LLM.GoogleAPIKey = v
	}
	if v := os.Getenv("GEOPULSE_POSTGRES_DSN"); v != "" {
		c.Quota.PostgresDSN = v
	}
}

// applyDefaults backfills fields a config file may have zeroed out.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Audit.NumQuestions <= 0 {
		c.Audit.NumQuestions = def.Audit.NumQuestions
	}
	if c.Audit.MaxSearchResults <= 0 {
		c.Audit.MaxSearchResults = def.Audit.MaxSearchResults
	}
	if c.Audit.SearchConcurrency <= 0 {
		c.Audit.SearchConcurrency = def.Audit.SearchConcurrency
	}
	if c.LLM.ContextModel == "" {
		c.LLM.ContextModel = def.LLM.ContextModel
	}
	if c.LLM.QuestionModel == "" {
		c.LLM.QuestionModel = def.LLM.QuestionModel
	}
	if c.LLM.SimulationModel == "" {
		c.LLM.SimulationModel = def.LLM.SimulationModel
	}
	if c.LLM.AnalysisModel == "" {
		c.LLM.AnalysisModel = def.LLM.AnalysisModel
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = def.Retry.Attempts
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = def.Retry.Multiplier
	}
	if c.Retry.MinWait <= 0 {
		c.Retry.MinWait = def.Retry.MinWait
	}
	if c.Retry.MaxWait <= 0 {
		c.Retry.MaxWait = def.Retry.MaxWait
	}
	if c.Quota.MaxAudits <= 0 {
		c.Quota.MaxAudits = def.Quota.MaxAudits
	}
	if c.Metrics.Port <= 0 {
		c.Metrics.Port = def.Metrics.Port
	}
}
