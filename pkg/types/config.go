package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "slr-engine/0.1 (mailto:you@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ArxivConfig holds settings for the gather stage.
type ArxivConfig struct {
	// PageSize is the number of rows requested per API call (default 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// TotalCap is the maximum number of rows collected per query (default 1000).
	TotalCap int `json:"total_cap" yaml:"total_cap" mapstructure:"total_cap"`

	// Delay is the pause between consecutive page requests (default 3s).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// SortBy is relevance, lastUpdatedDate, submittedDate, or empty.
	SortBy string `json:"sort_by" yaml:"sort_by" mapstructure:"sort_by"`

	// Fields lists the abstract target fields (title, abstract, all).
	Fields []string `json:"fields" yaml:"fields" mapstructure:"fields"`

	// Parser selects the Atom parser: gofeed or xml.
	Parser string `json:"parser" yaml:"parser" mapstructure:"parser"`

	// MaxRetries bounds retries of transient HTTP failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// DedupConfig selects the deduplication key and keep rule.
type DedupConfig struct {
	// Key is normalized_title, external_id, or title_year.
	Key string `json:"key" yaml:"key" mapstructure:"key"`

	// Rule is keep_first or keep_latest.
	Rule string `json:"rule" yaml:"rule" mapstructure:"rule"`
}

// ScreenConfig holds settings for the rule screener.
type ScreenConfig struct {
	// DomainPrefix is the category prefix every record must carry (default "cs.").
	// Empty disables the check.
	DomainPrefix string `json:"domain_prefix" yaml:"domain_prefix" mapstructure:"domain_prefix"`

	// Categories is the allow-list of category codes. Empty disables the check.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty" mapstructure:"categories"`
}

// LLMConfig holds shared settings for stages that call a language model.
type LLMConfig struct {
	// Provider is anthropic or openai.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the authentication key. Usually loaded from .secrets/.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`

	// BatchSize is the number of papers per classification call (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// MaxRetries is the number of retry attempts for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single model call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// QualityConfig holds the answer mapping and threshold for quality scoring.
type QualityConfig struct {
	ScoreMapping `yaml:",inline" mapstructure:",squash"`

	// Threshold is the minimum total score for inclusion. Unset means the
	// checklist cutoff, else half of the maximum possible score.
	Threshold *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty" mapstructure:"threshold"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// TracingConfig toggles span export.
type TracingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	HTTP    HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Arxiv   ArxivConfig   `json:"arxiv" yaml:"arxiv" mapstructure:"arxiv"`
	Dedup   DedupConfig   `json:"dedup" yaml:"dedup" mapstructure:"dedup"`
	Screen  ScreenConfig  `json:"screen" yaml:"screen" mapstructure:"screen"`
	LLM     LLMConfig     `json:"llm" yaml:"llm" mapstructure:"llm"`
	Quality QualityConfig `json:"quality" yaml:"quality" mapstructure:"quality"`
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "slr-engine/0.1 (+https://github.com/pdiddy/slr-engine)",
		},
		Arxiv: ArxivConfig{
			PageSize:   100,
			TotalCap:   1000,
			Delay:      3 * time.Second,
			Fields:     []string{"title", "abstract"},
			Parser:     "gofeed",
			MaxRetries: 3,
		},
		Dedup: DedupConfig{
			Key:  "normalized_title",
			Rule: "keep_latest",
		},
		Screen: ScreenConfig{
			DomainPrefix: "cs.",
		},
		LLM: LLMConfig{
			Provider:   "anthropic",
			Model:      "claude-sonnet-4-5-20250929",
			BatchSize:  10,
			MaxRetries: 3,
			Timeout:    2 * time.Minute,
		},
		Quality: QualityConfig{
			ScoreMapping: DefaultScoreMapping(),
		},
		Store: StoreConfig{
			Path: "slr.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
