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
	"go.uber.org/zap"

	"github.com/kailas-cloud/storedex/internal/config"
	"github.com/kailas-cloud/storedex/internal/db"
	"github.com/kailas-cloud/storedex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/storedex/internal/db/redis"
	"github.com/kailas-cloud/storedex/internal/index"
	logpkg "github.com/kailas-cloud/storedex/internal/logger"
	"github.com/kailas-cloud/storedex/internal/metrics"
	entryrepo "github.com/kailas-cloud/storedex/internal/repository/entry"
	ratingrepo "github.com/kailas-cloud/storedex/internal/repository/rating"
	chiTransport "github.com/kailas-cloud/storedex/internal/transport/chi"
	cataloguc "github.com/kailas-cloud/storedex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/storedex/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/storedex/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/storedex/internal/usecase/search"
	"github.com/kailas-cloud/storedex/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting storedex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()

	entries := entryrepo.New(store).WithLogger(logger)
	ratings := ratingrepo.New(store)

	indexer := index.New(logger).WithRetry(
		cfg.Indexing.MaxTries,
		time.Duration(cfg.Indexing.InitialIntervalMs)*time.Millisecond,
		time.Duration(cfg.Indexing.MaxIntervalMs)*time.Millisecond,
	)
	// Writes keep working without an index; health reports degraded until a rebuild succeeds.
	// The periodic rebuild below also repairs writes whose index update failed.
	if err := indexer.Rebuild(ctx, entries); err != nil {
		logger.Error("Initial index rebuild failed", zap.Error(err))
	}

	rebuildCtx, stopRebuild := context.WithCancel(ctx)
	defer stopRebuild()
	go indexer.RebuildEvery(rebuildCtx, entries, time.Duration(cfg.Indexing.RebuildIntervalSec)*time.Second)

	catalogSvc := cataloguc.New(entries, indexer, logger).
		WithPageSize(cfg.Catalog.PageSize).
		WithSlugAttempts(cfg.Catalog.SlugAttempts).
		WithIndexTimeout(time.Duration(cfg.Indexing.TimeoutMs) * time.Millisecond)
	searchSvc := searchuc.New(indexer).WithLimits(searchuc.Limits{
		DefaultLimit:       cfg.Catalog.SearchLimit,
		MaxLimit:           cfg.Catalog.MaxLimit,
		DefaultMaxDistance: cfg.Catalog.MaxDistanceM,
	})
	rankingSvc := rankinguc.New(ratings, entries)
	healthSvc := healthuc.New(store, indexer)

	server := chiTransport.NewServer(catalogSvc, searchSvc, rankingSvc, healthSvc).
		WithTopDefaults(cfg.Catalog.TopLimit, cfg.Catalog.MinRatingCount)

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

// newStore selects the storage backend. Redis and Valkey share the rueidis driver.
func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverRedis, config.DriverValkey:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("%s store: %w", cfg.Driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("author_id", r.Header.Get(chiTransport.AuthorHeader)),
				zap.String("indexing", ww.Header().Get(chiTransport.IndexingHeader)),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
