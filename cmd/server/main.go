package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/quadtask/quadtask/internal/cache"
	"github.com/quadtask/quadtask/internal/config"
	"github.com/quadtask/quadtask/internal/database"
	"github.com/quadtask/quadtask/internal/handlers"
	"github.com/quadtask/quadtask/internal/logger"
	"github.com/quadtask/quadtask/internal/matrix"
	"github.com/quadtask/quadtask/internal/middleware"
	"github.com/quadtask/quadtask/internal/models"
	"github.com/quadtask/quadtask/internal/queue"
	"github.com/quadtask/quadtask/internal/store"
	"github.com/quadtask/quadtask/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("task_store_url", cfg.TaskStoreURL),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "quadtask-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Postgres, used only for the override audit log; the matrix works
	// without it.
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_database")
	} else {
		zapLogger.Warn("database_not_configured_audit_log_disabled")
	}

	// Redis for rate limiting
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// RabbitMQ for classification jobs; retry to ride out broker startup.
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue, err = connectQueue(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_rabbitmq")
	} else {
		zapLogger.Warn("rabbitmq_not_configured_classification_disabled")
	}

	// TickTick-backed task store
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

	// Matrix engine
	taskCache := cache.New()
	var audit matrix.AuditRecorder
	if db != nil {
		audit = database.NewAuditRepository(db)
	}
	syncer := matrix.NewSyncer(storeClient, taskCache, audit, zapLogger)
	manager := matrix.NewManager(taskCache, syncer, zapLogger)

	refresher := cache.NewRefresher(taskCache, storeClient, manager, cfg.PollInterval, zapLogger)
	if jobQueue != nil {
		refresher.SetRefreshHandler(func(ctx context.Context, userID uuid.UUID, tasks []*models.Task) {
			enqueueUnclassified(ctx, jobQueue, zapLogger, userID, tasks)
		})
	}

	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()
	go refresher.Run(pollCtx)

	// Handlers
	matrixHandler := handlers.NewMatrixHandler(manager, syncer, taskCache, refresher, zapLogger)
	healthDeps := map[string]handlers.HealthDependency{
		"queue": jobQueue,
	}
	if db != nil {
		healthDeps["database"] = db
	}
	healthChecker := handlers.NewHealthChecker(healthDeps)

	// Router and middleware. gorilla/mux runs Use() middleware in
	// registration order, so the outermost concerns come first.
	r := mux.NewRouter()
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("quadtask-api"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	corsMW := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	r.Use(corsMW.Handler)

	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Logging(zapLogger))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	matrixRouter := r.PathPrefix("/api/v1/matrix").Subrouter()
	matrixRouter.Use(middleware.Auth(cfg.JWTIssuer, cfg.JWKSURL, zapLogger))
	matrixRouter.Use(rateLimitMW)
	matrixHandler.RegisterRoutes(matrixRouter)

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	pollCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	// Let dispatched persistence writes finish before the process exits.
	manager.Wait()

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff.
func connectQueue(amqpURL string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			return jobQueue, nil
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}

// enqueueUnclassified requests classification for tasks that arrived from the
// store without an AI quadrant. Duplicate jobs across refreshes are fine; the
// worker result write is idempotent.
func enqueueUnclassified(ctx context.Context, jobQueue queue.JobQueue, zapLogger *zap.Logger, userID uuid.UUID, tasks []*models.Task) {
	for _, task := range tasks {
		if !task.Active() || task.AIQuadrant != nil {
			continue
		}
		job := queue.NewJob(queue.JobTypeClassifyTask, userID, task.ID)
		if err := jobQueue.Enqueue(ctx, job); err != nil {
			zapLogger.Warn("failed_to_enqueue_classify_job",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
			return
		}
	}
}

func versionInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
