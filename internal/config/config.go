package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"docchat/internal/parser"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "./configs/config.yaml"

	defaultPort           = "8000"
	defaultUploadDir      = "./uploaded_documents"
	defaultChunkSize      = 1000
	defaultChunkOverlap   = 200
	defaultRetrievalK     = 5
	defaultLLMProvider    = "openai"
	defaultLLMBaseURL     = "https://api.groq.com/openai/v1"
	defaultLLMModel       = "llama-3.3-70b-versatile"
	defaultLLMTimeout     = 60 * time.Second
	defaultEmbedProvider  = "fastembed"
	defaultEmbedModel     = "sentence-transformers/all-MiniLM-L6-v2"
	defaultEmbedBatchSize = 32
	defaultStoreType      = "chromem"
	defaultStorePath      = "./chroma_db"
	defaultCollection     = "rag_documents"
	defaultServiceName    = "docchat"
	defaultMaxUploadBytes = 32 << 20
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	RAG         RAGConfig         `yaml:"rag"`
	Upload      UploadConfig      `yaml:"upload"`
	Log         LogConfig         `yaml:"log"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	GinMode     string   `yaml:"gin_mode"`
	CORSOrigins []string `yaml:"cors_origins"`
	// ChatRateLimit is the sustained /chat requests per second; 0 disables limiting.
	ChatRateLimit float64 `yaml:"chat_rate_limit"`
	ChatBurst     int     `yaml:"chat_burst"`
}

// LLMConfig configures a chat model or an embedding model endpoint.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Key         string        `yaml:"key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Key       string `yaml:"key"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
	CacheDir  string `yaml:"cache_dir"`
}

type VectorStoreConfig struct {
	// Type is "chromem" or "pgvector".
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
	Compress   bool   `yaml:"compress"`
	// EncryptionKey protects exported collections; chromem requires 32 bytes.
	EncryptionKey string `yaml:"encryption_key"`
	ExportPath    string `yaml:"export_path"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
	// Driver is "pgdriver" or "postgres" (lib/pq).
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	// ChunkOverlap defaults to 200 only when the key is absent; 0 disables overlap.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// ChunkStrategy is "fixed" or "recursive".
	ChunkStrategy string `yaml:"chunk_strategy"`
	RetrievalK    int    `yaml:"retrieval_k"`
	// SyncOnStart reindexes the upload directory when the server starts.
	SyncOnStart  bool          `yaml:"sync_on_start"`
	SyncInterval time.Duration `yaml:"sync_interval"`
}

type UploadConfig struct {
	Dir               string   `yaml:"dir"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	MaxBytes          int64    `yaml:"max_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// SampleRatio is the trace sampling ratio in [0,1].
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoadConfig reads the YAML file at path (a missing file yields defaults), loads .env when
// present and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := newConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		cfg.RAG.SyncOnStart = true
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newConfig presets the fields for which zero is a meaningful setting, so an explicit 0 in
// YAML or the environment is kept and an absent key still gets the default.
func newConfig() Config {
	var c Config
	c.RAG.ChunkOverlap = defaultChunkOverlap
	return c
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.GinMode, "GIN_MODE")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	setFloat(&c.Server.ChatRateLimit, "CHAT_RATE_LIMIT")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Key, "GROQ_API_KEY")
	setString(&c.LLM.Key, "LLM_API_KEY")

	setString(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&c.Embedding.Key, "EMBEDDING_API_KEY")

	setString(&c.VectorStore.Type, "VECTOR_STORE")
	setString(&c.VectorStore.Path, "CHROMA_PERSIST_DIR")
	setString(&c.VectorStore.Collection, "COLLECTION_NAME")
	setString(&c.Database.URL, "DATABASE_URL")

	setString(&c.Upload.Dir, "UPLOAD_DIR")
	setInt(&c.RAG.ChunkSize, "CHUNK_SIZE")
	setInt(&c.RAG.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&c.RAG.RetrievalK, "RETRIEVAL_K")
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RAG.SyncInterval = d
		}
	}

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.ChatBurst <= 0 {
		c.Server.ChatBurst = 5
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == "openai" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = defaultLLMTimeout
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = defaultEmbedProvider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbedModel
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = defaultEmbedBatchSize
	}

	if c.VectorStore.Type == "" {
		c.VectorStore.Type = defaultStoreType
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = defaultStorePath
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = defaultCollection
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}

	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkStrategy == "" {
		c.RAG.ChunkStrategy = "fixed"
	}
	if c.RAG.RetrievalK <= 0 {
		c.RAG.RetrievalK = defaultRetrievalK
	}

	if c.Upload.Dir == "" {
		c.Upload.Dir = defaultUploadDir
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{".pdf", ".docx"}
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = defaultMaxUploadBytes
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = 1
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid config: unknown gin_mode %q", c.Server.GinMode)
	}
	switch c.RAG.ChunkStrategy {
	case "fixed", "recursive":
	default:
		return fmt.Errorf("invalid config: unknown chunk_strategy %q", c.RAG.ChunkStrategy)
	}
	switch c.VectorStore.Type {
	case "chromem":
	case "pgvector":
		if c.Database.URL == "" {
			return fmt.Errorf("invalid config: database.url is required for the pgvector store")
		}
	default:
		return fmt.Errorf("invalid config: unknown vector_store.type %q", c.VectorStore.Type)
	}
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("invalid config: unknown llm.provider %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case "fastembed", "ollama", "openai":
	default:
		return fmt.Errorf("invalid config: unknown embedding.provider %q", c.Embedding.Provider)
	}
	supported := parser.SupportedExtensions()
	for i, ext := range c.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !slices.Contains(supported, ext) {
			return fmt.Errorf("invalid config: upload.allowed_extensions has %q, supported are %s",
				ext, strings.Join(supported, " "))
		}
		c.Upload.AllowedExtensions[i] = ext
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
