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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/broadcast"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/catalog"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/config"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/dispatcher"
	commentarygrpc "github.com/weiawesome/wes-io-live/commentary-service/internal/grpc"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/handler"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/hub"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/notifier"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/pipeline"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/registry"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/service"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/snapshot"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/database"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "commentary-service",
	})
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage (snapshots and audio)
	store, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	logger.Info().Str("type", cfg.Storage.Type).Msg("storage initialized")

	// Initialize lifecycle notifications
	var lifecycle notifier.Notifier = notifier.Noop{}
	ps, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize pubsub")
	}
	if ps != nil {
		defer ps.Close()
		lifecycle = notifier.NewPubSubNotifier(ps)
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("pubsub connected")
	}

	// Initialize generation pipeline
	pipe, err := pipeline.New(cfg.Pipeline, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize pipeline")
	}
	logger.Info().Str("type", cfg.Pipeline.Type).Int64("max_concurrent", cfg.Pipeline.MaxConcurrent).Msg("pipeline configured")

	// Initialize hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run(ctx)

	// Wire orchestrator
	reg := registry.New()
	source := snapshot.NewStorageSource(store, cfg.Snapshot)
	broadcaster := broadcast.New(wsHub)
	disp := dispatcher.New(dispatcher.Config{
		ThrottleInterval: cfg.Dispatcher.ThrottleInterval,
		ItemTimeout:      cfg.Dispatcher.ItemTimeout,
	}, reg, source, pipe, broadcaster, lifecycle)
	commentarySvc := service.NewCommentaryService(reg, disp, pipe, broadcaster, wsHub)

	// Initialize event catalog
	var games handler.GameCatalog
	if cfg.Catalog.Enabled {
		catalogSvc, closeCatalog, err := initCatalog(ctx, cfg.Catalog)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize catalog")
		}
		defer closeCatalog()
		games = catalogSvc
	}

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger, "/health"))

	handler.NewHandler(commentarySvc, store, games, handler.AudioOptions{
		Prefix:        cfg.Pipeline.AudioPrefix,
		Mode:          cfg.Audio.AccessMode,
		PresignExpiry: cfg.Audio.PresignExpiry,
	}, version).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, commentarySvc).RegisterRoutes(r)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("commentary-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var grpcServer *commentarygrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = commentarygrpc.NewServer(logger)
		grpcServer.SetServing(true)
		g.Go(func() error {
			return grpcServer.ListenAndServe(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port))
		})
	}

	// Wait for interrupt signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down commentary-service")
	case <-gctx.Done():
		logger.Error().Msg("server stopped unexpectedly, shutting down")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if grpcServer != nil {
		grpcServer.SetServing(false)
	}
	if err := disp.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Int("active_sessions", reg.Count()).Msg("workers did not stop in time")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
	cancel()

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}
	logger.Info().Msg("commentary-service stopped")
}

func initStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.S3)
	case "local", "":
		return storage.NewLocalStorage(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func initCatalog(ctx context.Context, cfg config.CatalogConfig) (*catalog.Service, func(), error) {
	logger := pkglog.L()

	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.AutoMigrate(db, &catalog.GameModel{}); err != nil {
		return nil, nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("catalog database ready")

	var cache catalog.Cache = catalog.NoopCache{}
	if cfg.Cache.Enabled {
		rc, err := catalog.NewRedisCache(cfg.Cache, "commentary")
		if err != nil {
			return nil, nil, err
		}
		cache = rc
		logger.Info().Str("address", cfg.Cache.Address).Msg("catalog cache connected")
	}

	svc := catalog.NewService(catalog.NewGormRepository(db), cache)
	if err := svc.Seed(ctx, cfg.Games); err != nil {
		return nil, nil, err
	}
	logger.Info().Int("games", len(cfg.Games)).Msg("catalog seeded")

	closeFn := func() {
		cache.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return svc, closeFn, nil
}
