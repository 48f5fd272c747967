// Registrybot is a WhatsApp/web chatbot for a government socio-economic
// registry program.
//
// It answers questions from a plain-text knowledge corpus using
// retrieval-augmented generation, keeps per-session chat history in
// Redis, and replies in the user's own language.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	registrybot
//
//	# Start with a config file
//	registrybot -config config.yaml
//
//	# Configure via environment
//	SERVER_PORT=3002 LLM_API_KEY=sk-... registrybot
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/registrybot/internal/bot"
	"github.com/fyrsmithlabs/registrybot/internal/config"
	"github.com/fyrsmithlabs/registrybot/internal/dispatch"
	"github.com/fyrsmithlabs/registrybot/internal/history"
	"github.com/fyrsmithlabs/registrybot/internal/knowledge"
	"github.com/fyrsmithlabs/registrybot/internal/language"
	"github.com/fyrsmithlabs/registrybot/internal/llm"
	"github.com/fyrsmithlabs/registrybot/internal/rag"
	"github.com/fyrsmithlabs/registrybot/internal/server"
	"github.com/fyrsmithlabs/registrybot/internal/summarizer"
	"github.com/fyrsmithlabs/registrybot/internal/twilio"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  registrybot            Start the chatbot server\n")
			fmt.Fprintf(os.Stderr, "  registrybot version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("registrybot by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the chatbot server and blocks until context cancellation.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger
//  3. Connect infrastructure (Redis, embedder, knowledge index)
//  4. Build the LLM chain, language service, and answer pipeline
//  5. Wire channel adapters, dispatcher, and Twilio sender
//  6. Start HTTP server, shut down gracefully on cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting registrybot",
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("corpus", cfg.Knowledge.CorpusPath),
		zap.Bool("history_enabled", cfg.Chat.HistoryEnabled),
		zap.Bool("contextualizer_enabled", cfg.Chat.ContextualizerEnabled))

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	defer deps.Close()

	services, err := initServices(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}

	srv, err := server.NewServer(
		services.whatsapp,
		services.web,
		deps.sender,
		deps.dispatcher,
		logger,
		server.Config{Port: cfg.Server.Port},
	)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	// Drain queued outbound sends before releasing connections.
	deps.dispatcher.Close()
	return nil
}

// dependencies holds infrastructure-level resources.
type dependencies struct {
	redisClient *redis.Client
	knowledge   *knowledge.Service
	llmClient   llm.Client
	sender      *twilio.Sender
	dispatcher  *dispatch.Dispatcher
	logger      *zap.Logger
}

// Close releases infrastructure resources.
func (d *dependencies) Close() {
	if d.redisClient != nil {
		_ = d.redisClient.Close()
	}
}

// services holds the wired channel adapters.
type services struct {
	whatsapp *bot.WhatsAppService
	web      *bot.WebService
}

// initLogger initializes the structured logger.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Observability.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initDependencies connects infrastructure: Redis, the embedding client,
// the knowledge index (built eagerly so a bad corpus fails startup), the
// LLM chain, the Twilio sender, and the dispatcher pool.
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password.Value(),
		DB:       cfg.Redis.DB,
	})

	embedder, err := knowledge.NewEmbedder(knowledge.EmbedderConfig{
		BaseURL: cfg.Embeddings.BaseURL,
		APIKey:  cfg.Embeddings.APIKey.Value(),
		Model:   cfg.Embeddings.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	knowledgeSvc, err := knowledge.NewService(knowledge.Config{
		CorpusPath:   cfg.Knowledge.CorpusPath,
		ChunkSize:    cfg.Knowledge.ChunkSize,
		ChunkOverlap: cfg.Knowledge.ChunkOverlap,
	}, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge service: %w", err)
	}

	// Corpus problems are fatal at startup, not at first question.
	if err := knowledgeSvc.Warm(ctx); err != nil {
		return nil, fmt.Errorf("building knowledge index: %w", err)
	}

	llmClient, err := initLLM(cfg, logger)
	if err != nil {
		return nil, err
	}

	sender, err := twilio.NewSender(twilio.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken.Value(),
		From:       cfg.Twilio.WhatsAppNumber,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating twilio sender: %w", err)
	}

	dispatcher := dispatch.New(cfg.Dispatch.Workers, logger)

	logger.Info("Dependencies initialized",
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("embeddings_model", cfg.Embeddings.Model),
		zap.Int("dispatch_workers", cfg.Dispatch.Workers))

	return &dependencies{
		redisClient: redisClient,
		knowledge:   knowledgeSvc,
		llmClient:   llmClient,
		sender:      sender,
		dispatcher:  dispatcher,
		logger:      logger,
	}, nil
}

// initLLM builds the completion client, chaining in the fallback
// provider when one is configured.
func initLLM(cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	primary, err := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey.Value(),
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	if !cfg.LLM.Fallback.Enabled {
		return primary, nil
	}

	secondary, err := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLM.Fallback.BaseURL,
		APIKey:      cfg.LLM.Fallback.APIKey.Value(),
		Model:       cfg.LLM.Fallback.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fallback llm client: %w", err)
	}

	logger.Info("Fallback LLM enabled",
		zap.String("base_url", cfg.LLM.Fallback.BaseURL),
		zap.String("model", cfg.LLM.Fallback.Model))

	return llm.NewFallback(primary, secondary, logger), nil
}

// initServices wires the business services and channel adapters.
func initServices(cfg *config.Config, deps *dependencies, logger *zap.Logger) (*services, error) {
	languageSvc := language.NewService(language.ServiceOptions{
		Provider: language.NewGoogleProvider(language.GoogleConfig{
			Endpoint: cfg.Translate.Endpoint,
			APIKey:   cfg.Translate.APIKey.Value(),
		}),
		LLM:             deps.llmClient,
		WorkingLanguage: cfg.Chat.DefaultLanguage,
		UseLLM:          cfg.Translate.UseLLM,
		Logger:          logger,
	})

	pipeline, err := rag.NewPipeline(rag.Config{
		TopK:                  cfg.Knowledge.TopK,
		RecentWindow:          cfg.Chat.RecentWindow,
		ContextualizerEnabled: cfg.Chat.ContextualizerEnabled,
	}, deps.knowledge, deps.llmClient, logger)
	if err != nil {
		return nil, fmt.Errorf("creating answer pipeline: %w", err)
	}

	historyStore := history.NewStore(deps.redisClient,
		time.Duration(cfg.Redis.HistoryTTL), logger)
	summarySvc := summarizer.New(deps.llmClient, cfg.Chat.SummaryWindow, logger)

	whatsapp, err := bot.NewWhatsAppService(bot.Options{
		Pipeline:       pipeline,
		Language:       languageSvc,
		History:        historyStore,
		Summarizer:     summarySvc,
		HistoryEnabled: cfg.Chat.HistoryEnabled,
		Channel:        cfg.Chat.ChannelPrefix,
		RecentWindow:   cfg.Chat.RecentWindow,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating whatsapp service: %w", err)
	}

	web, err := bot.NewWebService(pipeline, languageSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating web service: %w", err)
	}

	return &services{whatsapp: whatsapp, web: web}, nil
}
