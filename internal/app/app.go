package app

import (
	"context"
	"log"
	"time"

	"github.com/nabilhamdi/waraqa/internal/config"
	"github.com/nabilhamdi/waraqa/internal/core"
	db "github.com/nabilhamdi/waraqa/internal/core/database"
	"github.com/nabilhamdi/waraqa/internal/core/engine"
	"github.com/nabilhamdi/waraqa/internal/core/ingest"
	"github.com/nabilhamdi/waraqa/internal/core/llm"
	"github.com/nabilhamdi/waraqa/internal/core/storage"
	"github.com/nabilhamdi/waraqa/internal/notify"
)

type App struct {
	Store    core.Store
	Objects  core.ObjectStore
	Ingestor ingest.Ingestor
	Engine   *engine.ChatEngine
	Hub      *notify.Hub
	Server   *Server
}

// NewApp wires the whole service from config. Missing credentials select
// dev fallbacks: no DATABASE_URL means the in-memory store, no AWS keys
// mean local-disk storage, no Gemini key means the mock gateway.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	startCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var store core.Store
	if cfg.DatabaseURL != "" {
		pg, err := db.NewPostgresStore(startCtx, cfg)
		if err != nil {
			return nil, err
		}
		store = pg
		log.Println("Database initialized and ready.")
	} else {
		store = db.NewMemoryStore()
		log.Println("WARN: DATABASE_URL not set, using in-memory store")
	}

	var objects core.ObjectStore
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		s3, err := storage.NewS3Store(startCtx, cfg)
		if err != nil {
			return nil, err
		}
		objects = s3
		log.Println("Object storage initialized and ready.")
	} else {
		local, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		objects = local
		log.Printf("WARN: AWS credentials not set, storing uploads under %s", cfg.UploadDir)
	}

	var gateway core.CompletionGateway
	if cfg.AIAPIKey != "" {
		gemini, err := llm.NewGeminiGateway(startCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, err
		}
		gateway = gemini
	} else {
		gateway = llm.NewMockGateway()
	}

	hub := notify.NewHub()
	notifier := notify.NewService(store, hub)

	extractor := ingest.NewDocconvExtractor()
	ingestor := ingest.NewFileIngestor(store, objects, extractor, notifier, cfg.MaxChunkChars)
	ingestor.Start(ctx, cfg.IngestWorkers)

	retriever := engine.NewKeywordRetriever(store)
	prompts := engine.PromptAssembler{Language: cfg.AnswerLanguage}
	chatEngine := engine.NewChatEngine(store, retriever, gateway, prompts, cfg.GenModel)

	server := NewServer(cfg, store, objects, ingestor, chatEngine, hub)

	return &App{
		Store:    store,
		Objects:  objects,
		Ingestor: ingestor,
		Engine:   chatEngine,
		Hub:      hub,
		Server:   server,
	}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
