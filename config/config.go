package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the compliance service.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Check     CheckConfig     `yaml:"check"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Parser    ParserConfig    `yaml:"parser"`
	Server    ServerConfig    `yaml:"server"`
	Lock      LockConfig      `yaml:"lock"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig locates the rule collection. Path "memory" keeps it in RAM.
type StoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// ChunkerConfig controls how a rulebook is split into sections.
//
// KeepPreamble keeps text before the first heading as an untitled chunk 0.
// A rulebook with N headings and a preamble then yields N+1 chunks instead
// of exactly N. Off by default.
type ChunkerConfig struct {
	KeepPreamble bool `yaml:"keep_preamble"`
}

type IngestConfig struct {
	TempDir string `yaml:"temp_dir"` // uploaded rulebooks are buffered here
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK                int           `yaml:"top_k"`
	SchedulePrefixChars int           `yaml:"schedule_prefix_chars"`
	CacheSize           int           `yaml:"cache_size"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
}

type CheckConfig struct {
	MaxFiles int `yaml:"max_files"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "gemini", "openai", "ollama", "local"
	Model     string `yaml:"model"`       // empty uses the provider default
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"` // 0 uses the provider default
	BatchSize int    `yaml:"batch_size"`
}

type ReasoningConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float32       `yaml:"temperature"`
	RPM         int           `yaml:"rpm"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ParserConfig struct {
	Provider       string `yaml:"provider"`        // "model" or "local" for PDFs
	HeadingPattern string `yaml:"heading_pattern"` // local PDF lines promoted to "# " headings
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	Mode        string   `yaml:"mode"` // gin mode: debug, release, test
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
}

// LockConfig enables the cross-process ingestion lock when RedisAddr is set.
type LockConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	TTL           time.Duration `yaml:"ttl"`
}

// TelemetryConfig enables OTLP tracing when OTLPEndpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:       filepath.Join(".compliance", "rules.db"),
			Collection: "pilot_rules",
		},
		Ingest: IngestConfig{
			TempDir: "temp_uploads",
		},
		Retrieve: RetrieveConfig{
			TopK:                5,
			SchedulePrefixChars: 500,
			CacheSize:           100,
			CacheTTL:            5 * time.Minute,
		},
		Check: CheckConfig{
			MaxFiles: 5,
		},
		Embedding: EmbeddingConfig{
			Provider:  "gemini",
			APIKeyEnv: "GOOGLE_API_KEY",
			BatchSize: 100,
		},
		Reasoning: ReasoningConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-pro",
			APIKeyEnv:   "GOOGLE_API_KEY",
			Temperature: 0,
			RPM:         10,
			Timeout:     3 * time.Minute,
		},
		Parser: ParserConfig{
			Provider: "model",
		},
		Server: ServerConfig{
			Addr:        ":8000",
			Mode:        "release",
			CORSOrigins: []string{"*"},
			MaxUploadMB: 50,
		},
		Lock: LockConfig{
			TTL: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			SampleRatio: 0.1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// LoadFromDir loads .env and then compliance.yaml or .compliance/config.yaml
// from dir. Relative store and temp paths are resolved against dir.
func LoadFromDir(dir string) (*Config, error) {
	LoadEnv(dir)

	cfg := DefaultConfig()
	for _, path := range []string{
		filepath.Join(dir, "compliance.yaml"),
		filepath.Join(dir, ".compliance", "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			loaded, err := Load(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
			break
		}
	}

	cfg.resolvePaths(dir)
	return cfg, nil
}

// LoadEnv loads dir/.env into the process environment. Variables already
// set win; a missing file is ignored.
func LoadEnv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
}

func (c *Config) resolvePaths(dir string) {
	if c.Store.Path != "memory" && !filepath.IsAbs(c.Store.Path) {
		c.Store.Path = filepath.Join(dir, c.Store.Path)
	}
	if !filepath.IsAbs(c.Ingest.TempDir) {
		c.Ingest.TempDir = filepath.Join(dir, c.Ingest.TempDir)
	}
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "gemini", "openai", "ollama", "local":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Parser.Provider {
	case "model", "local":
	default:
		return fmt.Errorf("unknown parser provider %q", c.Parser.Provider)
	}
	if c.Reasoning.Provider != "gemini" {
		return fmt.Errorf("unknown reasoning provider %q", c.Reasoning.Provider)
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection must not be empty")
	}
	if c.Check.MaxFiles <= 0 {
		return fmt.Errorf("check.max_files must be positive")
	}
	return nil
}

// APIKey returns the value of the environment variable named by env.
func APIKey(env string) (string, error) {
	if env == "" {
		return "", fmt.Errorf("no API key environment variable configured")
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("API key not found in environment variable: %s", env)
	}
	return key, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDirs creates the directories the store and uploads live in.
func (c *Config) EnsureDirs() error {
	if c.Store.Path != "memory" {
		if err := os.MkdirAll(filepath.Dir(c.Store.Path), 0755); err != nil {
			return err
		}
	}
	return os.MkdirAll(c.Ingest.TempDir, 0755)
}
