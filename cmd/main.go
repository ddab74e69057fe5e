package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic-safety-chatbot/internal/ai"
	"traffic-safety-chatbot/internal/config"
	"traffic-safety-chatbot/internal/telemetry"
	"traffic-safety-chatbot/services"

	"github.com/go-co-op/gocron"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize telemetry
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Printf("Warning: metrics initialization failed: %v", err)
	}

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("traffic-safety-chatbot", cfg.OTLPEndpoint)
		if err != nil {
			log.Printf("Warning: tracer initialization failed: %v", err)
		} else {
			defer shutdown()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gemini serves both collaborator boundaries: embedding and generation
	gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GenerationModel, cfg.EmbeddingModel, cfg.GeminiTier, metrics)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer gemini.Close()

	// Conversation store backing is injected by configuration
	var store services.ConversationStore
	switch cfg.ConversationBackend {
	case "redis":
		rdb, err := config.NewRedisClient(cfg)
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer rdb.Close()
		store = services.NewRedisConversationStore(rdb, cfg.HistoryCap, cfg.SessionTTL)
	default:
		store = services.NewMemoryConversationStore(cfg.HistoryCap, cfg.SessionTTL)
	}

	// Assemble the pipeline
	docStore := services.NewDirectoryStore(cfg.DocumentDir)
	extractor := services.NewTextExtractor()
	chunker := services.NewChunkingService(cfg.ChunkSize)
	embedder := services.NewEmbeddingService(gemini, cfg.EmbedRetryAttempts, cfg.EmbedRetryDelay, metrics)
	index := services.NewIndexManager(docStore, extractor, chunker, embedder, metrics)
	retrieval := services.NewRetrievalService(index, embedder, cfg.RetrieveTopK, metrics)
	assistant := services.NewAssistant(index, retrieval, store, gemini, cfg.ContextWindow, metrics)

	// Initial build; a non-ready index is tolerated, retrieval degrades
	if result, err := assistant.BuildIndex(ctx); err != nil {
		log.Printf("Warning: initial index build failed: %v", err)
	} else if !result.Ready {
		log.Printf("Index not ready: no indexable content in %s", cfg.DocumentDir)
	}

	// Rebuild on document changes
	watcher, err := services.NewDocumentWatcher(cfg.DocumentDir, docStore, index, 2*time.Second)
	if err != nil {
		log.Fatal("Failed to create document watcher:", err)
	}
	defer watcher.Close()

	go func() {
		if err := watcher.Watch(ctx); err != nil && err != context.Canceled {
			log.Printf("Document watcher stopped: %v", err)
		}
	}()

	// Periodic safety-net rebuild in case a change is missed
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(cfg.RebuildInterval).Do(func() {
		if _, err := assistant.BuildIndex(ctx); err != nil {
			log.Printf("Scheduled index rebuild failed: %v", err)
		}
	})
	scheduler.StartAsync()
	defer scheduler.Stop()

	log.Printf("Assistant running: documents=%s chunk_size=%d top_k=%d backend=%s",
		cfg.DocumentDir, cfg.ChunkSize, cfg.RetrieveTopK, cfg.ConversationBackend)

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	cancel()

	log.Println("Assistant exited")
}
