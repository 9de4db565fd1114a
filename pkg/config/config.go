package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	AI       AIConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
	MaxUploadBytes  int64
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type            string // "fs" or "minio"
	Root            string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled       bool
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxConns      int
	MinConns      int
	MigrationsDir string
}

// PipelineConfig tunes the processing pipeline. Populated by envconfig from
// PIPELINE_* variables.
type PipelineConfig struct {
	TranscribeConcurrency int           `envconfig:"TRANSCRIBE_CONCURRENCY" default:"4"`
	DiarizeTimeout        time.Duration `envconfig:"DIARIZE_TIMEOUT" default:"30m"`
	SegmentTimeout        time.Duration `envconfig:"SEGMENT_TIMEOUT" default:"2m"`
	EmbedTimeout          time.Duration `envconfig:"EMBED_TIMEOUT" default:"5m"`
	SummarizeTimeout      time.Duration `envconfig:"SUMMARIZE_TIMEOUT" default:"5m"`
	AnswerTimeout         time.Duration `envconfig:"ANSWER_TIMEOUT" default:"2m"`
	DefaultTopK           int           `envconfig:"DEFAULT_TOP_K" default:"5"`
	EmbedBatchSize        int           `envconfig:"EMBED_BATCH_SIZE" default:"100"`
	CacheMaxEntries       int           `envconfig:"CACHE_MAX_ENTRIES" default:"64"`
	CacheTTL              time.Duration `envconfig:"CACHE_TTL" default:"6h"`
	PersistVectors        bool          `envconfig:"PERSIST_VECTORS" default:"true"`
	ReservationTTL        time.Duration `envconfig:"RESERVATION_TTL" default:"2h"`
	UploadDir             string        `envconfig:"UPLOAD_DIR" default:"./data/uploads"`
}

// AIConfig holds credentials and model names for hosted collaborators.
// Populated by envconfig from AI_* variables.
type AIConfig struct {
	OpenAIAPIKey       string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string  `envconfig:"OPENAI_BASE_URL"`
	ChatProvider       string  `envconfig:"CHAT_PROVIDER" default:"openai"`
	ChatModel          string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	GroqAPIKey         string  `envconfig:"GROQ_API_KEY"`
	GroqBaseURL        string  `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com"`
	GroqModel          string  `envconfig:"GROQ_MODEL" default:"llama-3.1-70b-versatile"`
	EmbeddingModel     string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimension int     `envconfig:"EMBEDDING_DIMENSION" default:"1536"`
	TranscribeModel    string  `envconfig:"TRANSCRIBE_MODEL" default:"whisper-1"`
	AssemblyAIAPIKey   string  `envconfig:"ASSEMBLYAI_API_KEY"`
	MaxPromptTokens    int     `envconfig:"MAX_PROMPT_TOKENS" default:"12000"`
	SummaryTemperature float64 `envconfig:"SUMMARY_TEMPERATURE" default:"0.3"`
	AnswerTemperature  float64 `envconfig:"ANSWER_TEMPERATURE" default:"0.2"`
	FFmpegPath         string  `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
}

// Load loads configuration from the default .env file and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile loads configuration from the given env file (ignored if missing)
// and the environment.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: %s not found, using environment variables or defaults", envFile)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 512)) << 20,
		},
		Storage: StorageConfig{
			Type:            getEnv("STORAGE_TYPE", "fs"),
			Root:            getEnv("STORAGE_ROOT", "./data/meetings"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "meeting-rag"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Enabled:       getEnvAsBool("DB_ENABLED", false),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			Name:          getEnv("DB_NAME", "meeting_rag"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 2),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "migrations"),
		},
	}

	if err := envconfig.Process("PIPELINE", &config.Pipeline); err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}
	if err := envconfig.Process("AI", &config.AI); err != nil {
		return nil, fmt.Errorf("failed to read ai config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "fs":
		if c.Storage.Root == "" {
			return fmt.Errorf("STORAGE_ROOT is required for fs storage")
		}
	case "minio":
		if c.Storage.Endpoint == "" || c.Storage.BucketName == "" {
			return fmt.Errorf("STORAGE_ENDPOINT and STORAGE_BUCKET are required for minio storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}

	switch c.AI.ChatProvider {
	case "openai", "groq":
	default:
		return fmt.Errorf("unsupported AI_CHAT_PROVIDER %q", c.AI.ChatProvider)
	}

	if c.Pipeline.TranscribeConcurrency < 1 {
		return fmt.Errorf("PIPELINE_TRANSCRIBE_CONCURRENCY must be at least 1")
	}
	if c.Pipeline.DefaultTopK < 1 {
		return fmt.Errorf("PIPELINE_DEFAULT_TOP_K must be at least 1")
	}
	if c.Pipeline.EmbedBatchSize < 1 || c.Pipeline.EmbedBatchSize > 2048 {
		return fmt.Errorf("PIPELINE_EMBED_BATCH_SIZE must be between 1 and 2048")
	}
	return nil
}

// ValidateCredentials checks that the hosted collaborators can be reached.
// It is separate from Validate so read-only commands work without keys.
func (c *Config) ValidateCredentials() error {
	if c.AI.OpenAIAPIKey == "" {
		return fmt.Errorf("AI_OPENAI_API_KEY is required")
	}
	if c.AI.AssemblyAIAPIKey == "" {
		return fmt.Errorf("AI_ASSEMBLYAI_API_KEY is required")
	}
	if c.AI.ChatProvider == "groq" && c.AI.GroqAPIKey == "" {
		return fmt.Errorf("AI_GROQ_API_KEY is required when AI_CHAT_PROVIDER=groq")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
