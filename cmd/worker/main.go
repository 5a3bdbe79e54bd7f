package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/quadtask/quadtask/internal/config"
	"github.com/quadtask/quadtask/internal/logger"
	"github.com/quadtask/quadtask/internal/queue"
	"github.com/quadtask/quadtask/internal/services/ai"
	"github.com/quadtask/quadtask/internal/store"
	"github.com/quadtask/quadtask/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("task_store_url", cfg.TaskStoreURL),
	)

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_not_configured")
	}
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	registry := ai.NewProviderRegistry()
	registry.Register("openai", func(config map[string]string) (ai.Provider, error) {
		return ai.NewOpenAIProviderWithLogger(
			config["api_key"],
			config["base_url"],
			config["model"],
			zapLogger,
			debugMode,
		), nil
	})

	providerName := cfg.AIProvider
	if providerName == "" {
		providerName = "openai"
	}
	provider, err := registry.GetProvider(providerName, map[string]string{
		"api_key":  cfg.OpenAIKey,
		"base_url": cfg.AIBaseURL,
		"model":    cfg.AIModel,
	})
	if err != nil {
		zapLogger.Fatal("unsupported_ai_provider",
			zap.String("provider", providerName),
			zap.Error(err),
		)
	}
	zapLogger.Info("initialized_ai_provider",
		zap.String("provider", providerName),
		zap.String("model", cfg.AIModel),
	)

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.TickTickClientID,
		ClientSecret: cfg.TickTickSecret,
		Endpoint:     store.OAuthEndpoint(),
	}
	token := &oauth2.Token{
		AccessToken:  cfg.TickTickAccessToken,
		RefreshToken: cfg.TickTickRefresh,
	}
	storeClient := store.NewClient(cfg.TaskStoreURL, oauthCfg, token)

	classifier := workers.NewClassifier(provider, storeClient, jobQueue, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- classifier.Run(ctx, cfg.RabbitMQPrefetch)
	}()

	zapLogger.Info("worker_started")

	select {
	case sig := <-sigChan:
		zapLogger.Info("shutdown_signal_received", zap.String("signal", sig.String()))
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Fatal("worker_stopped_with_error", zap.Error(err))
		}
	}

	zapLogger.Info("worker_exited")
}
