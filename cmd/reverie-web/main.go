package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scrypster/reverie/internal/chat"
	"github.com/scrypster/reverie/internal/config"
	"github.com/scrypster/reverie/internal/ingest"
	"github.com/scrypster/reverie/internal/lexicon"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/internal/retrieval"
	"github.com/scrypster/reverie/internal/server"
	"github.com/scrypster/reverie/internal/session"
	"github.com/scrypster/reverie/internal/storage/sqlite"
	"github.com/scrypster/reverie/internal/styleprofile"
	"github.com/scrypster/reverie/internal/vectorindex"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load keyword lexicon, with optional YAML overrides
	lex := lexicon.Default()
	if cfg.Provider.LexiconPath != "" {
		lex, err = lexicon.Load(cfg.Provider.LexiconPath)
		if err != nil {
			log.Fatalf("Failed to load lexicon overrides: %v", err)
		}
	}

	// Initialize providers
	generator, err := llm.NewTextGenerator(cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to initialize text generator: %v", err)
	}
	embedder, err := llm.NewEmbeddingGenerator(cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to initialize embedding generator: %v", err)
	}

	// Initialize vector index
	var index vectorindex.Index
	switch cfg.Storage.VectorBackend {
	case "postgres":
		index, err = vectorindex.NewPostgresIndex(cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to initialize postgres vector index: %v", err)
		}
	default:
		index = vectorindex.NewMemoryIndex()
	}
	defer index.Close()

	// Initialize turn store
	turns, err := sqlite.NewTurnStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to initialize turn store: %v", err)
	}
	defer turns.Close()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session registry with background eviction sweeper
	registry := session.NewMemoryRegistry(index)
	session.StartSweeper(ctx, registry, cfg.Session.SweepInterval, cfg.Session.TTL)

	// Ingestion pipeline
	batcher := ingest.NewBatcher(embedder, cfg.Ingest, cfg.Provider.EmbedRPS)
	profiler := styleprofile.New(lex)
	progress := ingest.NewProgressBroker()
	pipeline := ingest.NewPipeline(index, batcher, profiler, registry, progress, cfg.Ingest, cfg.Provider.EmbeddingDims)

	// Optional transcript drop-directory watcher
	if cfg.Storage.WatchDir != "" {
		watcher := ingest.NewDropWatcher(cfg.Storage.WatchDir, pipeline)
		if err := watcher.Start(ctx); err != nil {
			log.Fatalf("Failed to start drop watcher: %v", err)
		}
		defer watcher.Stop()
	}

	// Chat engine
	retriever, err := retrieval.New(index, embedder, lex, cfg.Retrieval)
	if err != nil {
		log.Fatalf("Failed to initialize retriever: %v", err)
	}
	composer := chat.NewComposer(lex, cfg.Chat.PayloadBudget, cfg.Chat.HistoryLimit)
	engine := chat.NewEngine(registry, retriever, composer, generator, turns, cfg.Chat)

	// Start server
	srv := server.New(pipeline, engine, registry, turns, cfg.Server)
	addr, err := srv.Start(ctx)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Reverie running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}
