package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ragpipe API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection and pool settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	PoolSize         int      `yaml:"pool_size"`
	AcquireTimeoutMS int      `yaml:"acquire_timeout_ms"`
	PingTimeoutMS    int      `yaml:"ping_timeout_ms"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// GenerationConfig holds generation model settings.
type GenerationConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// PipelineConfig enumerates the recognized retrieval/generation knobs.
type PipelineConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	RetrievalMethod     string  `yaml:"retrieval_method"` // vector, keyword, hybrid
	HybridAlpha         float64 `yaml:"hybrid_alpha"`
	PartialTimeoutMS    int     `yaml:"partial_timeout_ms"`
	MaxContextLength    int     `yaml:"max_context_length"`
	RetryAttempts       int     `yaml:"retry_attempts"`
	HNSWM               int     `yaml:"hnsw_m"`
	HNSWEFConstruct     int     `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60 // generation calls may take seconds
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.PoolSize <= 0 {
		c.Database.PoolSize = 4
	}
	if c.Database.AcquireTimeoutMS <= 0 {
		c.Database.AcquireTimeoutMS = 5000
	}
	if c.Database.PingTimeoutMS <= 0 {
		c.Database.PingTimeoutMS = 1000
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1024
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1024
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Pipeline.ChunkSize <= 0 {
		c.Pipeline.ChunkSize = 1000
	}
	if c.Pipeline.ChunkOverlap <= 0 {
		c.Pipeline.ChunkOverlap = 100
	}
	if c.Pipeline.SimilarityThreshold <= 0 {
		c.Pipeline.SimilarityThreshold = 0.35
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 5
	}
	if c.Pipeline.RetrievalMethod == "" {
		c.Pipeline.RetrievalMethod = "hybrid"
	}
	if c.Pipeline.HybridAlpha <= 0 {
		c.Pipeline.HybridAlpha = 0.7
	}
	if c.Pipeline.PartialTimeoutMS <= 0 {
		c.Pipeline.PartialTimeoutMS = 2000
	}
	if c.Pipeline.MaxContextLength <= 0 {
		c.Pipeline.MaxContextLength = 8000
	}
	if c.Pipeline.RetryAttempts <= 0 {
		c.Pipeline.RetryAttempts = 3
	}
	if c.Pipeline.HNSWM <= 0 {
		c.Pipeline.HNSWM = 32
	}
	if c.Pipeline.HNSWEFConstruct <= 0 {
		c.Pipeline.HNSWEFConstruct = 400
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragpipe:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf(
			"pipeline.chunk_overlap (%d) must be smaller than pipeline.chunk_size (%d)",
			c.Pipeline.ChunkOverlap, c.Pipeline.ChunkSize,
		)
	}
	if c.Pipeline.SimilarityThreshold < 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("pipeline.similarity_threshold must be between 0 and 1")
	}
	if c.Pipeline.HybridAlpha < 0 || c.Pipeline.HybridAlpha > 1 {
		return fmt.Errorf("pipeline.hybrid_alpha must be between 0 and 1")
	}
	switch c.Pipeline.RetrievalMethod {
	case "vector", "keyword", "traditional", "hybrid":
		// ok
	default:
		return fmt.Errorf(
			"pipeline.retrieval_method must be \"vector\", \"keyword\" or \"hybrid\", got %q",
			c.Pipeline.RetrievalMethod,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
