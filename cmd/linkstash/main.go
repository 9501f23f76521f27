package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/linkstash/linkstash/internal/app"
	"github.com/linkstash/linkstash/internal/auth"
	"github.com/linkstash/linkstash/internal/categories"
	"github.com/linkstash/linkstash/internal/links"
	"github.com/linkstash/linkstash/internal/platform/cache"
	"github.com/linkstash/linkstash/internal/platform/db"
	"github.com/linkstash/linkstash/internal/platform/storage"
	"github.com/linkstash/linkstash/internal/token"
	"github.com/linkstash/linkstash/internal/users"
	"github.com/linkstash/linkstash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(pool); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, category pages uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	blobs, err := storage.New(ctx, storage.Config{
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		BaseEndpoint: cfg.S3Endpoint,
	})
	if err != nil {
		logger.Error("configure object storage", slog.Any("error", err))
		os.Exit(1)
	}

	codec, err := token.NewCodec(cfg.JWTAccountActivation, cfg.JWTResetPassword, cfg.JWTSession)
	if err != nil {
		logger.Error("configure token codec", slog.Any("error", err))
		os.Exit(1)
	}

	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewNotifier(queue, cfg.ClientURL, cfg.EmailReplyTo)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(logger, authRepo, codec, notifier)
	authHandler := auth.NewHandler(logger, authService)
	guard := auth.Middleware{Logger: logger, Codec: codec, Repo: authRepo}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, guard)

	categoriesRepo := categories.NewRepository(pool)
	pageCache := categories.NewCache(redisClient, cfg.CacheTTL)
	categoriesService := categories.NewService(logger, categoriesRepo, blobs, pageCache)
	categoriesHandler := categories.NewHandler(logger, categoriesService, guard)

	linksRepo := links.NewRepository(pool)
	linksService := links.NewService(logger, linksRepo, notifier, categoriesService)
	linksHandler := links.NewHandler(logger, linksService, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		CategoriesHandler: categoriesHandler,
		LinksHandler:      linksHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
