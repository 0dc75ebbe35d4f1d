// Command api runs the Mini AI Studio HTTP service.
//
//	@title						Mini AI Studio API
//	@version					1.0
//	@description				Authentication, image upload and simulated generation history.
//	@BasePath					/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mini-ai-studio/studio-api/internal/api"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
	"github.com/mini-ai-studio/studio-api/internal/core/service"
	"github.com/mini-ai-studio/studio-api/internal/infrastructure/config"
	"github.com/mini-ai-studio/studio-api/internal/infrastructure/db/mongo"
	"github.com/mini-ai-studio/studio-api/internal/infrastructure/db/redis"
	"github.com/mini-ai-studio/studio-api/internal/infrastructure/storage"
	"github.com/mini-ai-studio/studio-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "studio-api:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "studio-api",
	})

	// --- MongoDB ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	// --- Redis (optional) ---
	var (
		rdb   *goredis.Client
		cache ports.RecentCache
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = redis.NewRecentCache(rdb, cfg.Redis.RecentTTL)
		log.Info().Msg("recent cache enabled")
	}

	// --- Content store ---
	store, staticDir, err := newContentStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	log.Info().Str("driver", cfg.Storage.Driver).Msg("content store ready")

	// --- Services ---
	tokens := service.NewTokenService(cfg.Auth.JWTSecret)
	authService := service.NewAuthService(
		mongo.NewUserRepository(db),
		tokens,
		service.TokenPolicy{RegisterTTL: cfg.Auth.RegisterTTL, LoginTTL: cfg.Auth.LoginTTL},
		logger.Component("auth"),
	)
	generator := service.NewSimulatedGenerator(store, service.GeneratorConfig{
		Delay:       cfg.Generation.Delay,
		Timeout:     cfg.Generation.Timeout,
		FailureRate: cfg.Generation.FailureRate,
	}, logger.Component("generator"))
	generationService := service.NewGenerationService(
		mongo.NewGenerationRepository(db),
		store,
		generator,
		service.GenerationConfig{MaxUploadBytes: cfg.Storage.MaxUploadBytes, Cache: cache},
		logger.Component("generations"),
	)

	e := api.NewRouter(api.Dependencies{
		Auth:           authService,
		Tokens:         tokens,
		Generations:    generationService,
		Mongo:          db,
		Redis:          rdb,
		StaticDir:      staticDir,
		StaticPrefix:   cfg.Storage.PublicBasePath,
		AllowedOrigins: cfg.Origins(),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return shutdown(shutdownCtx, srv, log)
}

// newContentStore returns the configured store and, for the local driver,
// the directory to serve as static content.
func newContentStore(ctx context.Context, cfg config.StorageConfig) (ports.ContentStore, string, error) {
	switch cfg.Driver {
	case "s3":
		s3cfg := storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		}
		client, err := storage.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, "", err
		}
		store, err := storage.NewS3Store(client, s3cfg)
		return store, "", err
	default:
		store, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBasePath)
		if err != nil {
			return nil, "", err
		}
		return store, store.Root(), nil
	}
}

func shutdown(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
