package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn warning error"`
	LogFile  string

	DataDir       string `validate:"required"`
	UploadDir     string `validate:"required"`
	ProcessedDir  string `validate:"required"`
	ObjectDir     string `validate:"required"`
	IndexSnapshot string `validate:"required"`
	PublicBaseURL string `validate:"required,url"`

	ResultBackend string `validate:"oneof=badger postgres"`
	BadgerPath    string
	PostgresDSN   string `validate:"required_if=ResultBackend postgres"`

	QueueBackend   string `validate:"oneof=memory nats"`
	NATSURL        string `validate:"required_if=QueueBackend nats"`
	NATSSubject    string `validate:"required"`
	ProcessWorkers int    `validate:"min=1"`
	AutoProcess    bool
	MaxUploadBytes int `validate:"min=1"`

	RemoteBackend    string `validate:"oneof=none r2r qdrant"`
	R2RBaseURL       string `validate:"required_if=RemoteBackend r2r"`
	QdrantURL        string `validate:"required_if=RemoteBackend qdrant"`
	QdrantCollection string
	RemoteTimeout    time.Duration `validate:"gt=0"`

	EmbeddingBackend string `validate:"oneof=hashing ollama"`
	EmbeddingDim     int    `validate:"min=8"`
	ChunkSize        int    `validate:"min=1"`
	ChunkOverlap     int    `validate:"min=0,ltfield=ChunkSize"`
	QueryCacheTTL    time.Duration

	OllamaURL         string
	OllamaGenModel    string
	OllamaEmbedModel  string
	OllamaVisionModel string
	OllamaTimeout     time.Duration

	OCRURL       string
	OCRLanguages string
	OCRTimeout   time.Duration

	LatexBinary string

	SearchDefaultLimit int `validate:"min=1"`
	SnippetHalfWidth   int `validate:"min=1"`

	RetryMaxAttempts int
	BreakerEnabled   bool

	APIRateLimitRPS            float64
	APIRateLimitBurst          int
	APIBackpressureMaxInFlight int
	APIBackpressureWait        time.Duration

	MCPEnabled bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first; CONFIG_FILE may point at a YAML file of the same
// keys used as defaults. Environment variables always win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	defaults, err := readDefaults(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	src := source{defaults: defaults}

	dataDir := src.str("DATA_DIR", "./data")
	cfg := Config{
		APIPort:  src.str("API_PORT", "8080"),
		LogLevel: strings.ToLower(src.str("LOG_LEVEL", "info")),
		LogFile:  src.str("LOG_FILE", ""),

		DataDir:       dataDir,
		UploadDir:     src.str("UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
		ProcessedDir:  src.str("PROCESSED_DIR", filepath.Join(dataDir, "processed")),
		ObjectDir:     src.str("OBJECT_DIR", filepath.Join(dataDir, "objects")),
		IndexSnapshot: src.str("INDEX_SNAPSHOT", filepath.Join(dataDir, "index.json")),
		PublicBaseURL: src.str("PUBLIC_BASE_URL", "http://localhost:8080/files"),

		ResultBackend: src.str("RESULT_BACKEND", "badger"),
		BadgerPath:    src.str("BADGER_PATH", filepath.Join(dataDir, "badger")),
		PostgresDSN:   src.str("POSTGRES_DSN", ""),

		QueueBackend:   src.str("QUEUE_BACKEND", "memory"),
		NATSURL:        src.str("NATS_URL", ""),
		NATSSubject:    src.str("NATS_SUBJECT", "documents.process"),
		ProcessWorkers: src.integer("PROCESS_WORKERS", 2),
		AutoProcess:    src.boolean("AUTO_PROCESS", false),
		MaxUploadBytes: src.integer("MAX_UPLOAD_BYTES", 10<<20),

		RemoteBackend:    src.str("REMOTE_BACKEND", "none"),
		R2RBaseURL:       src.str("R2R_BASE_URL", ""),
		QdrantURL:        src.str("QDRANT_URL", ""),
		QdrantCollection: src.str("QDRANT_COLLECTION", "notes"),
		RemoteTimeout:    src.duration("REMOTE_TIMEOUT", 30*time.Second),

		EmbeddingBackend: src.str("EMBEDDING_BACKEND", "hashing"),
		EmbeddingDim:     src.integer("EMBEDDING_DIM", 384),
		ChunkSize:        src.integer("CHUNK_SIZE", 900),
		ChunkOverlap:     src.integer("CHUNK_OVERLAP", 150),
		QueryCacheTTL:    src.duration("QUERY_CACHE_TTL", 10*time.Minute),

		OllamaURL:         src.str("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:    src.str("OLLAMA_GEN_MODEL", ""),
		OllamaEmbedModel:  src.str("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaVisionModel: src.str("OLLAMA_VISION_MODEL", ""),
		OllamaTimeout:     src.duration("OLLAMA_TIMEOUT", 30*time.Second),

		OCRURL:       src.str("OCR_URL", ""),
		OCRLanguages: src.str("OCR_LANGUAGES", "en"),
		OCRTimeout:   src.duration("OCR_TIMEOUT", 30*time.Second),

		LatexBinary: src.str("LATEX_BINARY", "pdflatex"),

		SearchDefaultLimit: src.integer("SEARCH_DEFAULT_LIMIT", 10),
		SnippetHalfWidth:   src.integer("SNIPPET_HALF_WIDTH", 75),

		RetryMaxAttempts: src.integer("RETRY_MAX_ATTEMPTS", 3),
		BreakerEnabled:   src.boolean("BREAKER_ENABLED", true),

		APIRateLimitRPS:            src.float("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:          src.integer("API_RATE_LIMIT_BURST", 20),
		APIBackpressureMaxInFlight: src.integer("API_BACKPRESSURE_MAX_IN_FLIGHT", 64),
		APIBackpressureWait:        src.duration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),

		MCPEnabled: src.boolean("MCP_ENABLED", true),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readDefaults(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		if value == nil {
			continue
		}
		out[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return out, nil
}

type source struct {
	defaults map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.defaults[key]
}

func (s source) str(key, fallback string) string {
	return mustEnv(s.lookup(key), fallback)
}

func (s source) integer(key string, fallback int) int {
	return mustEnvInt(s.lookup(key), fallback)
}

func (s source) boolean(key string, fallback bool) bool {
	return mustEnvBool(s.lookup(key), fallback)
}

func (s source) duration(key string, fallback time.Duration) time.Duration {
	return mustEnvDuration(s.lookup(key), fallback)
}

func (s source) float(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnv(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(v string, fallback bool) bool {
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("45s") and bare seconds ("45").
func mustEnvDuration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
