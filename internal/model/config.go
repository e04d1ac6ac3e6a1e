package model

import (
	"runtime"
	"time"
)

// Config is the complete runtime configuration
type Config struct {
	Producer ProducerConfig `yaml:"producer" mapstructure:"producer"`
	Annotate AnnotateConfig `yaml:"annotate" mapstructure:"annotate"`
	Protocol ProtocolConfig `yaml:"protocol" mapstructure:"protocol"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	LogLevel string         `yaml:"log_level" mapstructure:"log_level"`
}

// ProducerConfig identifies the producer recorded in view provenance and service metadata
type ProducerConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Version  string `yaml:"version" mapstructure:"version"`
	Vendor   string `yaml:"vendor" mapstructure:"vendor"`
	Language string `yaml:"language" mapstructure:"language"` // Language tag for TEXT inputs
}

// AnnotateConfig selects collaborators and relation encoding policy
type AnnotateConfig struct {
	Extractor          string `yaml:"extractor" mapstructure:"extractor"`                     // pattern, openai, ollama
	StringifyArguments bool   `yaml:"stringify_arguments" mapstructure:"stringify_arguments"` // Legacy "[m_1_2, m_1_3]" encoding
	MarkableTargets    bool   `yaml:"markable_targets" mapstructure:"markable_targets"`       // Add covered token ids to markables
}

// ProtocolConfig controls envelope handling
type ProtocolConfig struct {
	StrictDocuments bool `yaml:"strict_documents" mapstructure:"strict_documents"` // Validate DOCUMENT payloads against the schema
}

// BatchConfig controls directory mode
type BatchConfig struct {
	Include   []string `yaml:"include" mapstructure:"include"`       // doublestar patterns relative to the input directory
	OutputDir string   `yaml:"output_dir" mapstructure:"output_dir"` // Fixed subdirectory name under the input directory
	Workers   int      `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig controls the result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig controls fetching of URL inputs
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// LLMConfig configures the LLM relation extractor
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig controls the HTTP service
type ServerConfig struct {
	Addr              string  `yaml:"addr" mapstructure:"addr"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	MaxBodyBytes      int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Producer: ProducerConfig{
			Name:     "relmark",
			Version:  "0.0.0.UNKNOWN",
			Vendor:   "https://github.com/ppiankov/relmark",
			Language: "en",
		},
		Annotate: AnnotateConfig{
			Extractor:       "pattern",
			MarkableTargets: true,
		},
		Batch: BatchConfig{
			Include:   []string{"*.lif"},
			OutputDir: "rel",
			Workers:   runtime.NumCPU(),
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".relmark-cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "relmark/0.1 (+https://github.com/ppiankov/relmark)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 1000,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 10,
			Burst:             20,
			MaxBodyBytes:      10 << 20,
		},
		LogLevel: "info",
	}
}

// Identity returns the "<name>:<version>" string recorded as provenance producer
func (p ProducerConfig) Identity() string {
	return p.Name + ":" + p.Version
}
