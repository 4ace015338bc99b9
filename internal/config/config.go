// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/donbr/graphiti-qdrant/internal/splitter"
	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// Config represents the complete configuration. It is constructed once at
// process start and threaded through explicitly; nothing reads environment
// variables ad hoc at call sites.
type Config struct {
	Sources   []SourceConfig  `mapstructure:"sources" yaml:"sources"`
	Data      DataConfig      `mapstructure:"data" yaml:"data"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant" yaml:"qdrant"`
	Upload    UploadConfig    `mapstructure:"upload" yaml:"upload"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// SourceConfig describes one documentation source. A source with an empty
// strategy is downloaded but skipped by the split stage.
type SourceConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	LlmsURL     string `mapstructure:"llms_url" yaml:"llms_url"`
	LlmsFullURL string `mapstructure:"llms_full_url" yaml:"llms_full_url"`
	Strategy    string `mapstructure:"strategy" yaml:"strategy"` // with-url, header-only, or empty
}

// DataConfig contains local data directory layout.
type DataConfig struct {
	RawDir       string `mapstructure:"raw_dir" yaml:"raw_dir"`
	PagesDir     string `mapstructure:"pages_dir" yaml:"pages_dir"`
	ProcessedDir string `mapstructure:"processed_dir" yaml:"processed_dir"`
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`     // openai, ollama
	Model      string `mapstructure:"model" yaml:"model"`           // model name
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`     // API endpoint override
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`       // falls back to OPENAI_API_KEY
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"` // vector dimensions
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size"` // texts per embedding request
}

// QdrantConfig contains the hosted vector database connection.
type QdrantConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`       // falls back to QDRANT_HOST
	Port       int    `mapstructure:"port" yaml:"port"`       // gRPC port, usually 6334
	APIKey     string `mapstructure:"api_key" yaml:"api_key"` // falls back to QDRANT_API_KEY
	UseTLS     bool   `mapstructure:"use_tls" yaml:"use_tls"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// UploadConfig contains batch upload tuning.
type UploadConfig struct {
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"` // documents per upsert
	Workers   int `mapstructure:"workers" yaml:"workers"`       // parallel upsert workers
}

// SearchConfig contains search defaults.
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit" yaml:"max_limit"`
	PreviewChars int `mapstructure:"preview_chars" yaml:"preview_chars"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sources: []SourceConfig{
			{Name: "LangChain", LlmsURL: "https://docs.langchain.com/llms.txt", LlmsFullURL: "https://docs.langchain.com/llms-full.txt", Strategy: "with-url"},
			{Name: "Anthropic", LlmsURL: "https://docs.anthropic.com/llms.txt", LlmsFullURL: "https://docs.anthropic.com/llms-full.txt", Strategy: "with-url"},
			{Name: "Prefect", LlmsURL: "https://docs.prefect.io/llms.txt", LlmsFullURL: "https://docs.prefect.io/llms-full.txt", Strategy: "with-url"},
			{Name: "FastMCP", LlmsURL: "https://gofastmcp.com/llms.txt", LlmsFullURL: "https://gofastmcp.com/llms-full.txt", Strategy: "with-url"},
			{Name: "McpProtocol", LlmsURL: "https://modelcontextprotocol.io/llms.txt", LlmsFullURL: "https://modelcontextprotocol.io/llms-full.txt", Strategy: "with-url"},
			{Name: "PydanticAI", LlmsURL: "https://ai.pydantic.dev/llms.txt", LlmsFullURL: "https://ai.pydantic.dev/llms-full.txt", Strategy: "header-only"},
			{Name: "Zep", LlmsURL: "https://help.getzep.com/llms.txt", LlmsFullURL: "https://help.getzep.com/llms-full.txt", Strategy: "header-only"},
			// Downloaded for reference, no splitting strategy assigned yet.
			{Name: "Cursor", LlmsURL: "https://docs.cursor.com/llms.txt", LlmsFullURL: "https://docs.cursor.com/llms-full.txt"},
			{Name: "OpenAI", LlmsURL: "https://cdn.openai.com/API/docs/txt/llms.txt", LlmsFullURL: "https://cdn.openai.com/API/docs/txt/llms-full.txt"},
			{Name: "Vue", LlmsURL: "https://vuejs.org/llms.txt", LlmsFullURL: "https://vuejs.org/llms-full.txt"},
			{Name: "Supabase", LlmsURL: "https://supabase.com/docs/llms.txt", LlmsFullURL: "https://supabase.com/llms-full.txt"},
		},
		Data: DataConfig{
			RawDir:       "data/raw",
			PagesDir:     "data/pages",
			ProcessedDir: "data/processed",
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  100,
		},
		Qdrant: QdrantConfig{
			Port:       6334,
			UseTLS:     true,
			Collection: "llms-full-silver",
		},
		Upload: UploadConfig{
			BatchSize: 100,
			Workers:   4,
		},
		Search: SearchConfig{
			DefaultLimit: 5,
			MaxLimit:     20,
			PreviewChars: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigPath returns the path to the config file under root.
func ConfigPath(root string) string {
	return filepath.Join(root, "graphiti-qdrant.yaml")
}

// Load loads configuration from file, falling back to defaults. Missing
// credentials are resolved from the environment.
func Load(root string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	configPath := ConfigPath(root)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
		applyEnv(cfg)
		return cfg, warnings, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
		warnings = append(warnings, "Using default embedding provider: openai")
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "llms-full-silver"
	}
	if cfg.Upload.BatchSize == 0 {
		cfg.Upload.BatchSize = 100
	}
	if cfg.Upload.Workers == 0 {
		cfg.Upload.Workers = 4
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 20
	}
	if cfg.Search.PreviewChars == 0 {
		cfg.Search.PreviewChars = 1000
	}
	if cfg.Data.RawDir == "" {
		cfg.Data.RawDir = "data/raw"
	}
	if cfg.Data.PagesDir == "" {
		cfg.Data.PagesDir = "data/pages"
	}
	if cfg.Data.ProcessedDir == "" {
		cfg.Data.ProcessedDir = "data/processed"
	}

	applyEnv(cfg)
	return cfg, warnings, nil
}

// applyEnv fills credentials and endpoints from the environment when the
// config file leaves them empty.
func applyEnv(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Qdrant.APIKey == "" {
		cfg.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = os.Getenv("QDRANT_HOST")
	}
}

// Save saves configuration to file.
func Save(root string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(ConfigPath(root))
	v.SetConfigType("yaml")

	v.Set("sources", cfg.Sources)
	v.Set("data", cfg.Data)
	v.Set("embedding", cfg.Embedding)
	v.Set("qdrant", cfg.Qdrant)
	v.Set("upload", cfg.Upload)
	v.Set("search", cfg.Search)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	validEmbeddingProviders := map[string]bool{
		"openai": true, "ollama": true,
	}
	if !validEmbeddingProviders[cfg.Embedding.Provider] {
		errs = append(errs, fmt.Errorf("invalid embedding provider: %s", cfg.Embedding.Provider))
	}
	if cfg.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Embedding.Dimensions))
	}

	seen := map[string]bool{}
	for _, src := range cfg.Sources {
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("source with empty name"))
			continue
		}
		if seen[src.Name] {
			errs = append(errs, fmt.Errorf("duplicate source name: %s", src.Name))
		}
		seen[src.Name] = true
		if src.LlmsFullURL == "" {
			errs = append(errs, fmt.Errorf("source %s: llms_full_url is required", src.Name))
		}
		if src.Strategy != "" {
			if _, err := splitter.ParseStrategy(src.Strategy); err != nil {
				errs = append(errs, fmt.Errorf("source %s: %w", src.Name, err))
			}
		}
	}

	if cfg.Qdrant.Collection == "" {
		errs = append(errs, fmt.Errorf("qdrant collection name is required"))
	}
	if cfg.Upload.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("upload batch size must be positive, got %d", cfg.Upload.BatchSize))
	}
	if cfg.Upload.Workers <= 0 {
		errs = append(errs, fmt.Errorf("upload workers must be positive, got %d", cfg.Upload.Workers))
	}
	if cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		errs = append(errs, fmt.Errorf("search max_limit (%d) below default_limit (%d)", cfg.Search.MaxLimit, cfg.Search.DefaultLimit))
	}

	for i, err := range errs {
		errs[i] = fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}
	return errs
}

// SplitSources returns the sources that have a splitting strategy assigned.
func (c *Config) SplitSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Strategy != "" {
			out = append(out, s)
		}
	}
	return out
}

// Source returns the source with the given name, or false.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}
