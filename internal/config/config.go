package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MaxVideosLimit is the upper bound on videos processed per run.
	MaxVideosLimit = 50

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel  slog.Level
	LogFormat string
	APIPort   string
	DBPath    string

	// LLMProvider selects the embedding and chat backend ("gemini" or "openai").
	LLMProvider        string
	GoogleAPIKey       string
	GeminiChatModel    string
	GeminiEmbedModel   string
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingSize      int
	Temperature        float32

	TranscriptionAPIKey  string
	TranscriptionBaseURL string
	YouTubeAPIKey        string
	YtDlpPath            string
	CookieFile           string

	QdrantURL              string
	QdrantCollectionPrefix string

	MaxVideos    int
	ChunkSize    int
	ChunkOverlap int
	RetrievalK   int
	VideoDelay   time.Duration
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// A .env file in the current directory or one of its parents is loaded first;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		APIPort:   getEnv("API_PORT", "9000"),
		DBPath:    getEnv("DB_PATH", "./data/ytrag.db"),

		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GoogleAPIKey:       getEnv("GOOGLE_API_KEY", ""),
		GeminiChatModel:    getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		GeminiEmbedModel:   getEnv("GEMINI_EMBEDDING_MODEL", "embedding-001"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),

		TranscriptionAPIKey:  getEnv("TRANSCRIPTION_API_KEY", ""),
		TranscriptionBaseURL: getEnv("TRANSCRIPTION_BASE_URL", ""),
		YouTubeAPIKey:        getEnv("YOUTUBE_API_KEY", ""),
		YtDlpPath:            getEnv("YT_DLP_PATH", "yt-dlp"),
		CookieFile:           getEnv("COOKIE_FILE", ""),

		QdrantURL:              getEnv("QDRANT_URL", ""),
		QdrantCollectionPrefix: getEnv("QDRANT_COLLECTION_PREFIX", "transcripts"),
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	switch cfg.LLMProvider {
	case ProviderGemini:
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY is required when LLM_PROVIDER is %q", ProviderGemini)
		}
	case ProviderOpenAI:
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.LLMProvider)
	}

	if cfg.MaxVideos, err = getEnvInt("MAX_VIDEOS", 10); err != nil {
		return nil, err
	}
	if cfg.MaxVideos < 1 || cfg.MaxVideos > MaxVideosLimit {
		return nil, fmt.Errorf("MAX_VIDEOS must be between 1 and %d, got %d", MaxVideosLimit, cfg.MaxVideos)
	}

	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}

	if cfg.RetrievalK, err = getEnvInt("RETRIEVAL_K", 5); err != nil {
		return nil, err
	}
	if cfg.RetrievalK <= 0 {
		return nil, fmt.Errorf("RETRIEVAL_K must be greater than 0")
	}

	// Only the openai-compatible embedder needs the size up front; Gemini reports it.
	if cfg.EmbeddingSize, err = getEnvInt("EMBEDDING_SIZE", 768); err != nil {
		return nil, err
	}
	if cfg.EmbeddingSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_SIZE must be greater than 0")
	}

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.2"), 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE must be a valid number: %w", err)
	}
	cfg.Temperature = float32(temperature)

	delay, err := time.ParseDuration(getEnv("VIDEO_DELAY", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("VIDEO_DELAY must be a valid duration: %w", err)
	}
	if delay < 0 {
		return nil, fmt.Errorf("VIDEO_DELAY must not be negative")
	}
	cfg.VideoDelay = delay

	// The cookie file is handed to yt-dlp as-is; only its existence is checked.
	if cfg.CookieFile != "" {
		if _, err := os.Stat(cfg.CookieFile); err != nil {
			return nil, fmt.Errorf("COOKIE_FILE %q is not accessible: %w", cfg.CookieFile, err)
		}
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}
