package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/config"
	dbRedis "github.com/kailas-cloud/ragpipe/internal/db/redis"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/method"
	logpkg "github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	"github.com/kailas-cloud/ragpipe/internal/repository/embcache"
	keywordrepo "github.com/kailas-cloud/ragpipe/internal/repository/keyword"
	"github.com/kailas-cloud/ragpipe/internal/repository/vectorstore"
	chiTransport "github.com/kailas-cloud/ragpipe/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragpipe/internal/transport/openai"
	generateuc "github.com/kailas-cloud/ragpipe/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragpipe/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/ragpipe/internal/usecase/retrieval"
	statsuc "github.com/kailas-cloud/ragpipe/internal/usecase/stats"
	"github.com/kailas-cloud/ragpipe/internal/version"
)

func main() {
	// Local development convenience; absence is not an error
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragpipe API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:            cfg.Database.Addrs,
		Password:         cfg.Database.Password,
		PoolSize:         cfg.Database.PoolSize,
		AcquireTimeout:   time.Duration(cfg.Database.AcquireTimeoutMS) * time.Millisecond,
		PingTimeout:      time.Duration(cfg.Database.PingTimeoutMS) * time.Millisecond,
		PoolAcquisitions: metrics.PoolAcquisitionsTotal,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Embedder chain: OpenAI provider wrapped in the embedding cache
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	var embedder domain.Embedder = embcache.New(
		baseEmbedder, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger,
	)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: float32(cfg.Generation.Temperature),
		MaxTokens:   cfg.Generation.MaxTokens,
		Retries:     cfg.Pipeline.RetryAttempts,
		Timeout:     time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	// Repositories
	vecRepo := vectorstore.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions).
		WithHNSW(vectorstore.HNSWConfig{
			M:           cfg.Pipeline.HNSWM,
			EFConstruct: cfg.Pipeline.HNSWEFConstruct,
		})
	if err := vecRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	kwRepo := keywordrepo.New(store, cfg.Storage.KeyPrefix)

	// Use case services
	ingestSvc := ingestuc.New(vecRepo, embedder, cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	retrievalSvc := retrievaluc.New(vecRepo, kwRepo, embedder, retrievaluc.Options{
		Alpha:          cfg.Pipeline.HybridAlpha,
		Retries:        cfg.Pipeline.RetryAttempts,
		PartialTimeout: time.Duration(cfg.Pipeline.PartialTimeoutMS) * time.Millisecond,
	})
	generateSvc := generateuc.New(retrievalSvc, generator, cfg.Pipeline.MaxContextLength)
	statsSvc := statsuc.New(vecRepo)
	healthSvc := healthuc.New(vecRepo, newEmbeddingHealthChecker(baseEmbedder), generator)

	defaultMethod, _ := method.Parse(cfg.Pipeline.RetrievalMethod)
	server := chiTransport.NewServer(
		ingestSvc, retrievalSvc, generateSvc, statsSvc, healthSvc,
		chiTransport.Defaults{
			Threshold: cfg.Pipeline.SimilarityThreshold,
			Method:    defaultMethod,
		},
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
