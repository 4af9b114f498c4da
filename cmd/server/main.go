package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"pathway/internal/capabilities"
	"pathway/internal/config"
	domainchat "pathway/internal/domain/services/chat"
	"pathway/internal/httputil"
	"pathway/internal/middleware"
	"pathway/internal/repository/postgres"
	serviceChat "pathway/internal/service/chat"
	"pathway/internal/service/chat/providers/anthropic"
	"pathway/internal/service/chat/retrieval"
	"pathway/internal/service/chat/translate"
	"pathway/internal/transport/ws"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.MaxLogFiles)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Session repository
	tables := postgres.NewTableNames(cfg.TablePrefix)
	sessionRepo := postgres.NewSessionRepository(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})

	// Generation provider
	provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey, cfg.Model, cfg.TitleModel)
	if err != nil {
		log.Fatalf("Failed to setup generation provider: %v", err)
	}
	logger.Info("generation provider ready",
		"provider", provider.Name(),
		"model", cfg.Model,
		"title_model", cfg.TitleModel,
	)

	// Model capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	modelCaps, err := capabilityRegistry.GetModelCapabilities("anthropic", cfg.Model)
	if err != nil {
		log.Fatalf("Unknown model %q: %v", cfg.Model, err)
	}
	logger.Info("capability registry initialized", "model", cfg.Model)

	// Retrieval backend
	kb, err := retrieval.NewWeaviateKnowledgeBase(cfg.WeaviateScheme, cfg.WeaviateHost)
	if err != nil {
		log.Fatalf("Failed to create retrieval backend: %v", err)
	}
	retriever := retrieval.NewRetriever(kb, cfg.KnowledgeBaseID, logger)

	// Translation is optional; without it every turn runs monolingual
	var translator domainchat.Translator
	if cfg.TranslationEnabled && cfg.TranslateURL != "" {
		translator = translate.NewClient(cfg.TranslateURL, cfg.TranslateAPIKey)
		logger.Info("translation enabled", "url", cfg.TranslateURL)
	}

	finalizer := serviceChat.NewFinalizer(sessionRepo, provider, logger)

	orchestrator := serviceChat.NewOrchestrator(&serviceChat.OrchestratorConfig{
		Generator:      provider,
		Retriever:      retriever,
		Translator:     translator,
		Sessions:       sessionRepo,
		Finalizer:      finalizer,
		SystemPrompt:   cfg.SystemPrompt,
		Model:          modelCaps,
		ConflictReport: cfg.ConflictReportEnabled,
		Logger:         logger,
	})

	wsHandler := ws.NewHandler(orchestrator, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /ws", wsHandler)

	// Build middleware chain
	var handler http.Handler = mux
	handler = middleware.Recovery(logger)(handler)

	// CORS - applies to the HTTP surface; the websocket route performs
	// its own origin handling during the upgrade
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	handler = corsHandler.Handler(handler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived websocket streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
