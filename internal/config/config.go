// Package config loads immutable process configuration from the environment,
// with an optional YAML overlay file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
	ProviderNone      Provider = "none"
)

// StorageConfig holds S3-compatible object store settings.
type StorageConfig struct {
	Endpoint        string        `yaml:"endpoint"` // empty for plain AWS
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	PublicBaseURL   string        `yaml:"public_base_url"`
	PresignExpiry   time.Duration `yaml:"presign_expiry"`
}

// WorkerConfig holds extraction worker settings.
type WorkerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	StopTimeout    time.Duration `yaml:"stop_timeout"`
	MaxObjectBytes int64         `yaml:"max_object_bytes"`
}

// ExtractionConfig holds text extractor windowing settings.
type ExtractionConfig struct {
	ChunkSize   int `yaml:"chunk_size"`
	SummaryLen  int `yaml:"summary_len"`
	EvidenceLen int `yaml:"evidence_len"`
}

// RetrievalConfig holds retrieval engine settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// Config holds all configuration values. Constructed once at process start
// and passed down; nothing reads ambient globals after that.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM
	LLMProvider     Provider
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	AWSRegion       string

	Storage    StorageConfig
	Worker     WorkerConfig
	Extraction ExtractionConfig
	Retrieval  RetrievalConfig

	// HTTP server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables, then applies the YAML
// overlay file named by HEIRLOOM_CONFIG if one is set.
func Load() (Config, error) {
	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "heirloom"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "memories"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     Provider(getEnv("HEIRLOOM_LLM_PROVIDER", string(ProviderNone))),
		LLMModel:        getEnv("HEIRLOOM_LLM_MODEL", "llama3"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		Storage: StorageConfig{
			Endpoint:        getEnv("HEIRLOOM_S3_ENDPOINT", ""),
			Region:          getEnv("HEIRLOOM_S3_REGION", getEnv("AWS_REGION", "us-east-1")),
			Bucket:          getEnv("HEIRLOOM_S3_BUCKET", "heirloom-media"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("HEIRLOOM_S3_PUBLIC_BASE_URL", ""),
			PresignExpiry:   getDuration("HEIRLOOM_S3_PRESIGN_EXPIRY", 15*time.Minute),
		},
		Worker: WorkerConfig{
			PollInterval:   getDuration("HEIRLOOM_WORKER_POLL_INTERVAL", 3*time.Second),
			StopTimeout:    getDuration("HEIRLOOM_WORKER_STOP_TIMEOUT", 10*time.Second),
			MaxObjectBytes: getInt64("HEIRLOOM_MAX_OBJECT_BYTES", 500*1024*1024),
		},
		Extraction: ExtractionConfig{
			ChunkSize:   getInt("HEIRLOOM_TEXT_CHUNK_SIZE", 1500),
			SummaryLen:  getInt("HEIRLOOM_TEXT_SUMMARY_LEN", 200),
			EvidenceLen: getInt("HEIRLOOM_TEXT_EVIDENCE_LEN", 300),
		},
		Retrieval: RetrievalConfig{
			TopK: getInt("HEIRLOOM_RETRIEVAL_TOP_K", 8),
		},

		ServerPort: getEnv("HEIRLOOM_SERVER_PORT", "8487"),

		LogFile:  getEnv("HEIRLOOM_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("HEIRLOOM_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("HEIRLOOM_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, fmt.Errorf("apply config file %s: %w", path, err)
		}
	}
	return cfg, nil
}

// fileConfig mirrors the YAML overlay. Only set fields override the
// environment-derived values.
type fileConfig struct {
	ServerPort *string           `yaml:"server_port"`
	Storage    *StorageConfig    `yaml:"storage"`
	Worker     *WorkerConfig     `yaml:"worker"`
	Extraction *ExtractionConfig `yaml:"extraction"`
	Retrieval  *RetrievalConfig  `yaml:"retrieval"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if fc.ServerPort != nil {
		c.ServerPort = *fc.ServerPort
	}
	if fc.Storage != nil {
		c.Storage = mergeStorage(c.Storage, *fc.Storage)
	}
	if fc.Worker != nil {
		w := *fc.Worker
		if w.PollInterval > 0 {
			c.Worker.PollInterval = w.PollInterval
		}
		if w.StopTimeout > 0 {
			c.Worker.StopTimeout = w.StopTimeout
		}
		if w.MaxObjectBytes > 0 {
			c.Worker.MaxObjectBytes = w.MaxObjectBytes
		}
	}
	if fc.Extraction != nil {
		e := *fc.Extraction
		if e.ChunkSize > 0 {
			c.Extraction.ChunkSize = e.ChunkSize
		}
		if e.SummaryLen > 0 {
			c.Extraction.SummaryLen = e.SummaryLen
		}
		if e.EvidenceLen > 0 {
			c.Extraction.EvidenceLen = e.EvidenceLen
		}
	}
	if fc.Retrieval != nil && fc.Retrieval.TopK > 0 {
		c.Retrieval.TopK = fc.Retrieval.TopK
	}
	return nil
}

func mergeStorage(base, over StorageConfig) StorageConfig {
	if over.Endpoint != "" {
		base.Endpoint = over.Endpoint
	}
	if over.Region != "" {
		base.Region = over.Region
	}
	if over.Bucket != "" {
		base.Bucket = over.Bucket
	}
	if over.AccessKeyID != "" {
		base.AccessKeyID = over.AccessKeyID
	}
	if over.SecretAccessKey != "" {
		base.SecretAccessKey = over.SecretAccessKey
	}
	if over.PublicBaseURL != "" {
		base.PublicBaseURL = over.PublicBaseURL
	}
	if over.PresignExpiry > 0 {
		base.PresignExpiry = over.PresignExpiry
	}
	return base
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
