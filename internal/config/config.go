package config

import "time"

// Reflection strategies selectable through GenerationConfig.ReflectionMode.
const (
	ReflectionPerTopic = "per_topic"
	ReflectionBatch    = "batch"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding" validate:"required"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval" validate:"required"`
	Search     SearchConfig     `mapstructure:"search"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database settings. An empty URL disables
// flashcard persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	UseLocal          bool          `mapstructure:"use_local"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	ModelName         string        `mapstructure:"model_name" validate:"required"`
	LocalBaseURL      string        `mapstructure:"local_base_url" validate:"required,url"`
	LocalModel        string        `mapstructure:"local_model" validate:"required"`
	LocalAPIKey       string        `mapstructure:"local_api_key"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
	Temperature       float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	TokensPerMinute   int           `mapstructure:"tokens_per_minute" validate:"gte=0"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Model   string `mapstructure:"model" validate:"required"`
	APIKey  string `mapstructure:"api_key"`
}

// RetrievalConfig controls chunking and similarity search.
type RetrievalConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" validate:"required,gt=0"`
	ChunkOverlap int `mapstructure:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	TopK         int `mapstructure:"top_k" validate:"required,gt=0"`
}

// SearchConfig configures the web enrichment provider.
type SearchConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url" validate:"omitempty,url"`
	MaxResults   int           `mapstructure:"max_results" validate:"gt=0,lte=20"`
	SnippetChars int           `mapstructure:"snippet_chars" validate:"gt=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// GenerationConfig tunes the orchestration and reflection loops.
type GenerationConfig struct {
	ReflectionMode          string  `mapstructure:"reflection_mode" validate:"required,oneof=per_topic batch"`
	MaxReflectionIterations int     `mapstructure:"max_reflection_iterations" validate:"gt=0,lte=10"`
	BatchMaxIterations      int     `mapstructure:"batch_max_iterations" validate:"gt=0,lte=10"`
	BatchQualityThreshold   float64 `mapstructure:"batch_quality_threshold" validate:"gte=0,lte=100"`
	ConvergenceRatio        float64 `mapstructure:"convergence_ratio" validate:"gt=0,lte=1"`
	TopicSampleChunks       int     `mapstructure:"topic_sample_chunks" validate:"gt=0"`
	WorkerCount             int     `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize               int     `mapstructure:"queue_size" validate:"gt=0"`
}
