// Package app assembles the service: configuration, adapters, use cases and
// the HTTP server, with graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	natsio "github.com/nats-io/nats.go"
	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/messaging/nats"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/repository/cache"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/repository/mongodb"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/storage/minio"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/config"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/usecase"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/listing/validate"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/platform/logger"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/platform/metrics"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/port/rest"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/port/rest/middleware"
)

const metricsNamespace = "unipro_listings"

// Run builds the service from cfg and blocks until SIGINT/SIGTERM or a
// server failure. Mongo and the media host are required; Redis and NATS are
// optional side channels and their absence only costs caching and events.
func Run(cfg *config.Config) error {
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting listing service", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongodb.NewClient(ctx, cfg.Mongo)
	if err != nil {
		log.Error("mongo unavailable", zap.Error(err))
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn("error disconnecting mongo", zap.Error(err))
		}
	}()

	repo := mongodb.NewListingRepository(mongoClient, cfg.Mongo.Database)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure collection schema", zap.Error(err))
		return err
	}
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	mediaStorage, err := minio.New(ctx, cfg.Minio, log)
	if err != nil {
		log.Error("media storage unavailable", zap.Error(err))
		return err
	}

	var (
		redisClient  *redisv9.Client
		listingCache usecase.ListingCache
	)
	if rdb, err := cache.NewClient(ctx, cfg.Redis); err != nil {
		log.Warn("redis unavailable, continuing without listing cache", zap.Error(err))
	} else {
		redisClient = rdb
		listingCache = cache.NewListingCache(rdb, cfg.Redis.TTL, log)
		defer func() { _ = rdb.Close() }()
	}

	var (
		natsConn  *natsio.Conn
		publisher usecase.EventPublisher
	)
	if pub, err := nats.NewPublisher(cfg.NATS, log); err != nil {
		log.Warn("NATS unavailable, continuing without event publishing", zap.Error(err))
	} else {
		natsConn = pub.Conn()
		publisher = pub
		defer pub.Close()
	}

	m := metrics.New(metricsNamespace)

	listingUC := usecase.NewListingUsecase(
		repo,
		mediaStorage,
		listingCache,
		publisher,
		m,
		log,
		usecase.Options{
			Defaults:      validate.Defaults{Whatsapp: cfg.Listing.DefaultWhatsapp},
			MediaFolder:   cfg.Media.Folder,
			UploadTimeout: cfg.Media.UploadTimeout,
		},
	)

	devMode := cfg.Env == "local" || cfg.Env == "dev"
	handler := rest.NewListingHandler(listingUC, log, devMode)
	health := rest.NewHealthHandler(mongoClient, mediaStorage, redisClient, natsConn, log)

	router := rest.NewRouter(handler, health, log, rest.RouterOptions{
		MaxBodyBytes:  cfg.HTTPServer.MaxBodyBytes,
		Limiter:       middleware.NewRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window),
		UploadLimiter: middleware.NewRateLimiter(cfg.RateLimit.UploadMax, cfg.RateLimit.UploadWindow),
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error("http server failed", zap.Error(err))
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}

// MustRun exits the process on failure, for use from main.
func MustRun(cfg *config.Config) {
	if err := Run(cfg); err != nil {
		os.Exit(1)
	}
}
