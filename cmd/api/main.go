package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ytdl "github.com/kkdai/youtube/v2"

	"ytrag/internal/config"
	"ytrag/internal/http"
	"ytrag/internal/indexer"
	"ytrag/internal/ingest"
	"ytrag/internal/llm"
	"ytrag/internal/rag"
	"ytrag/internal/service"
	"ytrag/internal/storage"
	"ytrag/internal/transcript"
	"ytrag/internal/vectorstore"
	"ytrag/internal/youtube"
	"ytrag/internal/ytdlp"
)

// backend is an LLM provider able to both embed and generate.
type backend interface {
	indexer.Embedder
	rag.Generator
}

// openAIBackend pairs the chat and embeddings clients of an OpenAI-compatible server.
type openAIBackend struct {
	*llm.Client
	*llm.EmbeddingsClient
}

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Vector store: Qdrant when configured, in-process otherwise
	var vectorStore vectorstore.VectorStore
	if cfg.QdrantURL != "" {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		defer func() {
			_ = qdrantStore.Close()
		}()
		vectorStore = qdrantStore
		slog.Info("Using Qdrant vector store", "url", cfg.QdrantURL)
	} else {
		vectorStore = vectorstore.NewMemoryStore()
		slog.Info("Using in-memory vector store")
	}

	model, err := newBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}
	slog.Info("LLM provider ready", "provider", cfg.LLMProvider)

	// Link discovery and transcript fetching
	runner := ytdlp.NewRunner(cfg.YtDlpPath, cfg.CookieFile)
	if !runner.Available() {
		slog.Warn("yt-dlp not found, subtitle download and yt-dlp discovery will fail", "path", cfg.YtDlpPath)
	}
	videoClient := &ytdl.Client{}

	discoverers := []youtube.Discoverer{
		youtube.NewYtDlpDiscoverer(runner),
		youtube.NewPlaylistDiscoverer(videoClient),
	}
	if cfg.YouTubeAPIKey != "" {
		dataAPI, err := youtube.NewDataAPIDiscoverer(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			log.Fatalf("Failed to create YouTube Data API client: %v", err)
		}
		discoverers = append(discoverers, dataAPI)
	}
	discoverers = append(discoverers, youtube.NewPageDiscoverer(nil, ""))
	discoverer := youtube.NewChain(discoverers...)
	slog.Info("Link discovery configured", "strategies", discoverer.Strategies())

	providers := []transcript.Provider{
		transcript.NewCaptionProvider(videoClient),
		transcript.NewSubtitleProvider(runner, ""),
	}
	if cfg.TranscriptionAPIKey != "" {
		whisper := transcript.NewWhisperTranscriber(cfg.TranscriptionAPIKey, cfg.TranscriptionBaseURL)
		providers = append(providers, transcript.NewAudioProvider(videoClient, whisper, ""))
	}
	fetcher := transcript.NewFetcher(providers...)
	aggregator := ingest.NewAggregator(fetcher, cfg.VideoDelay)

	// Indexing and answering
	splitter, err := indexer.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}
	pipeline := indexer.NewPipeline(splitter, model, vectorStore, cfg.QdrantCollectionPrefix)
	ragEngine := rag.NewEngine(model, cfg.RetrievalK)
	slog.Info("RAG engine initialized", "k", cfg.RetrievalK, "chunk_size", cfg.ChunkSize, "chunk_overlap", cfg.ChunkOverlap)

	session := service.NewSession(discoverer, aggregator, pipeline, ragEngine, storage.NewRunRepo(db), cfg.MaxVideos)

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		Session:     session,
		VectorStore: vectorStore,
		DB:          db,
	})

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting API server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := session.Close(shutdownCtx); err != nil {
		slog.Error("Failed to release session index", "error", err)
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// newBackend creates the configured embedding and chat provider.
func newBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	if cfg.LLMProvider == config.ProviderGemini {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GoogleAPIKey, cfg.GeminiChatModel, cfg.GeminiEmbedModel, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	}

	chat := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	chat.Temperature = cfg.Temperature
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingSize)

	// Validate embedding client vector size (fail-fast)
	if _, err := embedder.EmbedTexts(ctx, []string{"test"}); err != nil {
		return nil, err
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingSize)
	return openAIBackend{Client: chat, EmbeddingsClient: embedder}, nil
}
