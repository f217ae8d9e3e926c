package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mixaill76/ads_insight_agent/internal/metrics"
)

// Provider names accepted in the llm section.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Default models per provider, used when the config leaves model empty.
const (
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultGeminiModel    = "gemini-2.0-flash"
)

type Config struct {
	Report   ReportConfig    `yaml:"report"`
	Datasets []DatasetConfig `yaml:"datasets"`
	Cache    CacheConfig     `yaml:"cache"`
	LLM      LLMConfig       `yaml:"llm"`
}

// ReportConfig controls the deterministic half of the pipeline.
type ReportConfig struct {
	Grouping       string `yaml:"grouping"`
	TopN           int    `yaml:"top_n"`
	MetricsOutput  string `yaml:"metrics_output"`
	InsightsOutput string `yaml:"insights_output"`
	LoggingLevel   string `yaml:"logging_level"`
	LoggingFormat  string `yaml:"logging_format"`
	Workers        int    `yaml:"workers"`
}

// DatasetConfig describes one source spreadsheet.
type DatasetConfig struct {
	Name         string              `yaml:"name"`
	Path         string              `yaml:"path"`
	Format       string              `yaml:"format"`
	CampaignType string              `yaml:"campaign_type"`
	Columns      map[string][]string `yaml:"columns"`
}

type CacheConfig struct {
	MaxDatasets int `yaml:"max_datasets"`
}

// LLMConfig configures the insights step. An empty provider disables it and
// the run produces the metrics artifact only.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	MaxTokens      int           `yaml:"max_tokens"`
	Temperature    float64       `yaml:"temperature"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	EventLog       string        `yaml:"event_log"`
}

// UnmarshalYAML implements custom unmarshaling for LLMConfig so
// request_timeout accepts duration strings like "60s" or "2m".
func (l *LLMConfig) UnmarshalYAML(value *yaml.Node) error {
	type tempConfig struct {
		Provider       string  `yaml:"provider"`
		Model          string  `yaml:"model"`
		APIKey         string  `yaml:"api_key"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		RequestTimeout string  `yaml:"request_timeout"`
		MaxRetries     int     `yaml:"max_retries"`
		EventLog       string  `yaml:"event_log"`
	}

	var temp tempConfig
	if err := value.Decode(&temp); err != nil {
		return err
	}

	l.Provider = temp.Provider
	l.Model = temp.Model
	l.APIKey = temp.APIKey
	l.MaxTokens = temp.MaxTokens
	l.Temperature = temp.Temperature
	l.MaxRetries = temp.MaxRetries
	l.EventLog = temp.EventLog

	if temp.RequestTimeout == "" {
		l.RequestTimeout = 0
	} else {
		duration, err := time.ParseDuration(temp.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		l.RequestTimeout = duration
	}

	return nil
}

func Load(path string) (*Config, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Normalize fills defaults and resolves os.environ/ references.
func (c *Config) Normalize() {
	if c.Report.Grouping == "" {
		c.Report.Grouping = metrics.DimensionCampaign
	}
	if c.Report.TopN == 0 {
		c.Report.TopN = 5
	}
	if c.Report.MetricsOutput == "" {
		c.Report.MetricsOutput = "metrics_output.json"
	}
	if c.Report.InsightsOutput == "" {
		c.Report.InsightsOutput = "insights_report.json"
	}
	if c.Report.LoggingLevel == "" {
		c.Report.LoggingLevel = "info"
	}
	if c.Report.LoggingFormat == "" {
		c.Report.LoggingFormat = "text"
	}
	if c.Report.Workers <= 0 {
		c.Report.Workers = 1
	}
	if c.Cache.MaxDatasets <= 0 {
		c.Cache.MaxDatasets = 16
	}

	for i := range c.Datasets {
		if c.Datasets[i].Format == "" {
			c.Datasets[i].Format = "auto"
		}
	}

	c.LLM.APIKey = resolveEnvString(c.LLM.APIKey)
	if c.LLM.Provider != "" {
		if c.LLM.Model == "" {
			switch c.LLM.Provider {
			case ProviderAnthropic:
				c.LLM.Model = DefaultAnthropicModel
			case ProviderGemini:
				c.LLM.Model = DefaultGeminiModel
			}
		}
		if c.LLM.MaxTokens <= 0 {
			c.LLM.MaxTokens = 4096
		}
		if c.LLM.RequestTimeout <= 0 {
			c.LLM.RequestTimeout = 60 * time.Second
		}
		if c.LLM.MaxRetries < 0 {
			c.LLM.MaxRetries = 0
		}
		if c.LLM.EventLog == "" {
			c.LLM.EventLog = "llm_logs.jsonl"
		}
	}
}

func (c *Config) Validate() error {
	if !metrics.ValidDimension(c.Report.Grouping) {
		return fmt.Errorf("invalid grouping: %s (must be campaign, ad_group, or date)", c.Report.Grouping)
	}

	if c.Report.TopN < 0 {
		return fmt.Errorf("invalid top_n: %d", c.Report.TopN)
	}

	if c.Report.LoggingLevel != "" {
		validLevels := map[string]bool{"info": true, "debug": true, "error": true}
		if !validLevels[c.Report.LoggingLevel] {
			return fmt.Errorf("invalid logging_level: %s (must be info, debug, or error)", c.Report.LoggingLevel)
		}
	}

	if c.Report.LoggingFormat != "text" && c.Report.LoggingFormat != "json" {
		return fmt.Errorf("invalid logging_format: %s (must be text or json)", c.Report.LoggingFormat)
	}

	if len(c.Datasets) == 0 {
		return fmt.Errorf("at least one dataset is required")
	}

	seen := make(map[string]bool, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("dataset %d: name is required", i+1)
		}
		if ds.Path == "" {
			return fmt.Errorf("dataset %q: path is required", ds.Name)
		}
		if seen[ds.Name] {
			return fmt.Errorf("dataset %q: duplicate name", ds.Name)
		}
		seen[ds.Name] = true
	}

	switch c.LLM.Provider {
	case "", ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("invalid llm provider: %s (must be anthropic or gemini)", c.LLM.Provider)
	}

	if c.LLM.Provider != "" && c.LLM.Temperature < 0 {
		return fmt.Errorf("invalid temperature: %v", c.LLM.Temperature)
	}

	return nil
}

// InsightsEnabled reports whether the config asks for the LLM insights step.
func (c *Config) InsightsEnabled() bool {
	return c.LLM.Provider != ""
}
