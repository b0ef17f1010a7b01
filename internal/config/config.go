package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/docsearch/internal/retry"
)

// Database drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds the docsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Blob      BlobConfig      `yaml:"blob"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Summary   SummaryConfig   `yaml:"summary"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
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

// DatabaseConfig holds index store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, postgres (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`
	MaxConns         int32    `yaml:"max_conns"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	TimeoutMs        int      `yaml:"timeout_ms"`
	MaxRetries       int      `yaml:"max_retries"`
}

// BlobConfig holds S3-compatible bucket settings.
type BlobConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
	Credentials     string `yaml:"credentials"` // static, env, iam (default: static)
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	MaxRetries      int    `yaml:"max_retries"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // label used in metrics
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	TimeoutMs           int    `yaml:"timeout_ms"`
	MaxRetries          int    `yaml:"max_retries"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // 0 = no expiry
	CacheDisabled       bool   `yaml:"cache_disabled"`
}

// SummaryConfig holds document analysis settings. An empty model disables analysis.
type SummaryConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutMs   int     `yaml:"timeout_ms"`
}

// SearchConfig holds hybrid search settings.
type SearchConfig struct {
	Threshold    float64 `yaml:"threshold"`
	VectorLimit  int     `yaml:"vector_limit"`
	LexicalLimit int     `yaml:"lexical_limit"`
	MaxResults   int     `yaml:"max_results"`
}

// IngestConfig holds upload settings.
type IngestConfig struct {
	MaxUploadBytes   int64 `yaml:"max_upload_bytes"`
	ExtractTimeoutMs int   `yaml:"extract_timeout_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "docsearch:"
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.TimeoutMs <= 0 {
		c.Database.TimeoutMs = 5000
	}

	if c.Blob.Credentials == "" {
		c.Blob.Credentials = "static"
	}
	if c.Blob.Region == "" {
		c.Blob.Region = "us-east-1"
	}
	if c.Blob.TimeoutMs <= 0 {
		c.Blob.TimeoutMs = 10000
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 15000
	}

	if c.Summary.MaxTokens <= 0 {
		c.Summary.MaxTokens = 1000
	}
	if c.Summary.Temperature <= 0 {
		c.Summary.Temperature = 0.3
	}
	if c.Summary.TimeoutMs <= 0 {
		c.Summary.TimeoutMs = 30000
	}

	if c.Search.Threshold <= 0 {
		c.Search.Threshold = 0.1
	}
	if c.Search.VectorLimit <= 0 {
		c.Search.VectorLimit = 20
	}
	if c.Search.LexicalLimit <= 0 {
		c.Search.LexicalLimit = 100
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}

	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = 25 << 20
	}
	if c.Ingest.ExtractTimeoutMs <= 0 {
		c.Ingest.ExtractTimeoutMs = 30000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", DriverRedis)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverPostgres, c.Database.Driver)
	}
	if c.Blob.Endpoint == "" || c.Blob.Bucket == "" {
		return fmt.Errorf("blob.endpoint and blob.bucket are required")
	}
	switch c.Blob.Credentials {
	case "static", "env", "iam":
	default:
		return fmt.Errorf("blob.credentials must be \"static\", \"env\" or \"iam\", got %q", c.Blob.Credentials)
	}
	if c.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold must be at most 1, got %v", c.Search.Threshold)
	}
	if c.Database.MaxRetries < 0 || c.Blob.MaxRetries < 0 || c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// DatabaseRetry returns the retry policy for index store calls.
func (c *Config) DatabaseRetry() retry.Policy {
	return policy(c.Database.MaxRetries, c.Database.TimeoutMs)
}

// BlobRetry returns the retry policy for blob store calls.
func (c *Config) BlobRetry() retry.Policy {
	return policy(c.Blob.MaxRetries, c.Blob.TimeoutMs)
}

// EmbeddingRetry returns the retry policy for embedding calls.
func (c *Config) EmbeddingRetry() retry.Policy {
	return policy(c.Embedding.MaxRetries, c.Embedding.TimeoutMs)
}

func policy(maxRetries, timeoutMs int) retry.Policy {
	p := retry.Default(time.Duration(timeoutMs) * time.Millisecond)
	if maxRetries > 0 {
		p.MaxRetries = maxRetries
	}
	return p
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
